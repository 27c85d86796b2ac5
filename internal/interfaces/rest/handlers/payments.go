package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/application/services"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/geo"
	"github.com/DanielPopoola/atelier-orders/internal/interfaces/rest"
)

// maxProofForm bounds the whole multipart body. The service applies the
// configured per-file limit.
const maxProofForm = 12 << 20

type CreatePaymentSessionRequest struct {
	Override bool `json:"override"`
}

type VerifyResponse struct {
	Outcome  application.PollOutcome `json:"outcome"`
	Attempts int                     `json:"attempts"`
	Order    *rest.OrderView         `json:"order,omitempty"`
}

func (h *Handlers) HandleCreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentSessionRequest
	if err := h.decodeJSON(r, &req, true); err != nil {
		respondError(w, err)
		return
	}

	session, err := h.checkout.CreatePaymentSession(r.Context(), services.CreatePaymentSessionCommand{
		OrderID:  r.PathValue("id"),
		Override: req.Override,
		Client: application.RequestContext{
			IP:          geo.ClientIP(r),
			CountryHint: r.Header.Get(CountryHeader),
		},
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rest.ToSessionView(session))
}

// HandleVerifyPaymentSession polls provider B on behalf of a customer who
// came back from checkout. A poll that runs out of attempts is not a
// failure: the order stays pending and the sweeper keeps checking.
func (h *Handlers) HandleVerifyPaymentSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.gateway.PollProviderB(r.Context(), r.PathValue("id"), r.PathValue("sessionID"))
	if err != nil && !errors.Is(err, domain.ErrVerificationTimedOut) {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusAccepted
	}

	resp := VerifyResponse{}
	if result != nil {
		resp.Outcome = result.Outcome
		resp.Attempts = result.Attempts
		if result.Order != nil {
			view := rest.ToOrderView(result.Order)
			resp.Order = &view
		}
	}
	if err != nil && resp.Outcome == "" {
		resp.Outcome = application.PollTimedOut
	}

	respondJSON(w, status, resp)
}

func (h *Handlers) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProofForm)
	if err := r.ParseMultipartForm(maxProofForm); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, application.NewPayloadTooLargeError(tooLarge.Limit+1, tooLarge.Limit))
			return
		}
		respondError(w, application.NewInvalidInputError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, domain.NewMissingRequiredFieldError("file"))
		return
	}
	defer file.Close()

	contentType, err := proofContentType(file, header)
	if err != nil {
		respondError(w, application.NewInvalidInputError(err))
		return
	}

	outcome, err := h.orders.SubmitManualProof(r.Context(), services.SubmitProofCommand{
		OrderID:     r.PathValue("id"),
		Reference:   strings.TrimSpace(r.FormValue("reference")),
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, rest.ToOrderView(outcome.Order))
}

// proofContentType trusts the part header unless it is missing or generic,
// in which case the first bytes are sniffed and the file is rewound.
func proofContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	declared := header.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

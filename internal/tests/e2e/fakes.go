package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// fakeProviderA answers session creation the way the hosted checkout does.
type fakeProviderA struct {
	*httptest.Server

	mu         sync.Mutex
	references []string
}

func newFakeProviderA() *fakeProviderA {
	f := &fakeProviderA{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			return
		}
		ref := "pa_" + req.Reference

		f.mu.Lock()
		f.references = append(f.references, ref)
		f.mu.Unlock()

		writeJSON(w, map[string]string{
			"reference":         ref,
			"authorization_url": "https://checkout.provider-a.test/" + ref,
		})
	})
	f.Server = httptest.NewServer(mux)
	return f
}

func (f *fakeProviderA) lastReference() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.references) == 0 {
		return ""
	}
	return f.references[len(f.references)-1]
}

type checkout struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Status   string      `json:"status"`
}

// fakeProviderB keeps checkouts in memory; tests flip them to paid.
type fakeProviderB struct {
	*httptest.Server

	mu        sync.Mutex
	checkouts map[string]*checkout
	last      string
}

func newFakeProviderB() *fakeProviderB {
	f := &fakeProviderB{checkouts: make(map[string]*checkout)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/checkouts", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ClientReference string      `json:"client_reference"`
			Amount          json.Number `json:"amount"`
			Currency        string      `json:"currency"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
			return
		}
		id := "cs_" + req.ClientReference

		f.mu.Lock()
		f.checkouts[id] = &checkout{Amount: req.Amount, Currency: req.Currency, Status: "open"}
		f.last = id
		f.mu.Unlock()

		writeJSON(w, map[string]any{
			"id":       id,
			"url":      "https://pay.provider-b.test/c/" + id,
			"status":   "open",
			"amount":   req.Amount,
			"currency": req.Currency,
		})
	})
	mux.HandleFunc("GET /v1/checkouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		c, ok := f.checkouts[r.PathValue("id")]
		var snapshot checkout
		if ok {
			snapshot = *c
		}
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]string{"error": "not_found"})
			return
		}
		writeJSON(w, map[string]any{
			"id":       r.PathValue("id"),
			"status":   snapshot.Status,
			"amount":   snapshot.Amount,
			"currency": snapshot.Currency,
		})
	})
	f.Server = httptest.NewServer(mux)
	return f
}

func (f *fakeProviderB) markLast(status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts[f.last].Status = status
	return f.last
}

// newFakeRates serves a fixed NGN rate table.
func newFakeRates() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"base":"NGN","date":"2025-03-03","rates":{"USD":0.00066,"GBP":0.00052,"EUR":0.00061}}`)
	}))
}

// newFakeObjectStore accepts any object upload.
func newFakeObjectStore() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"e2e"`)
		w.WriteHeader(http.StatusOK)
	}))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

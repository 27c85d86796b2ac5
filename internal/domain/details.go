package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderDetails is the type-specific part of an order. Each order type has
// exactly one details variant.
type OrderDetails interface {
	OrderType() OrderType
	Validate() error
}

type LineItem struct {
	Style    string `json:"style"`
	Size     string `json:"size"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity"`
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return NewMissingRequiredFieldError("items")
	}
	for i, it := range items {
		if strings.TrimSpace(it.Style) == "" {
			return NewMissingRequiredFieldError(fmt.Sprintf("items[%d].style", i))
		}
		if it.Quantity <= 0 {
			return NewInvalidAmountError(fmt.Sprintf("items[%d].quantity=%d", i, it.Quantity))
		}
	}
	return nil
}

type BulkDetails struct {
	Organisation    string     `json:"organisation"`
	Items           []LineItem `json:"items"`
	DeliveryAddress string     `json:"delivery_address"`
}

func (BulkDetails) OrderType() OrderType { return OrderTypeBulk }

func (d BulkDetails) Validate() error {
	if strings.TrimSpace(d.DeliveryAddress) == "" {
		return NewMissingRequiredFieldError("delivery_address")
	}
	return validateItems(d.Items)
}

type PODDetails struct {
	DesignRef string     `json:"design_ref"`
	Placement string     `json:"placement"`
	Items     []LineItem `json:"items"`
}

func (PODDetails) OrderType() OrderType { return OrderTypePOD }

func (d PODDetails) Validate() error {
	if strings.TrimSpace(d.DesignRef) == "" {
		return NewMissingRequiredFieldError("design_ref")
	}
	return validateItems(d.Items)
}

type BoutiqueDetails struct {
	SKU      string `json:"sku"`
	Size     string `json:"size"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity"`
}

func (BoutiqueDetails) OrderType() OrderType { return OrderTypeBoutique }

func (d BoutiqueDetails) Validate() error {
	if strings.TrimSpace(d.SKU) == "" {
		return NewMissingRequiredFieldError("sku")
	}
	if d.Quantity <= 0 {
		return NewInvalidAmountError(fmt.Sprintf("quantity=%d", d.Quantity))
	}
	return nil
}

type FabricDetails struct {
	FabricCode string `json:"fabric_code"`
	Yards      int    `json:"yards"`
	Color      string `json:"color,omitempty"`
}

func (FabricDetails) OrderType() OrderType { return OrderTypeFabric }

func (d FabricDetails) Validate() error {
	if strings.TrimSpace(d.FabricCode) == "" {
		return NewMissingRequiredFieldError("fabric_code")
	}
	if d.Yards <= 0 {
		return NewInvalidAmountError(fmt.Sprintf("yards=%d", d.Yards))
	}
	return nil
}

type SouvenirDetails struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Branding string `json:"branding,omitempty"`
}

func (SouvenirDetails) OrderType() OrderType { return OrderTypeSouvenir }

func (d SouvenirDetails) Validate() error {
	if strings.TrimSpace(d.Item) == "" {
		return NewMissingRequiredFieldError("item")
	}
	if d.Quantity <= 0 {
		return NewInvalidAmountError(fmt.Sprintf("quantity=%d", d.Quantity))
	}
	return nil
}

type CustomRequestDetails struct {
	Description     string     `json:"description"`
	ReferenceImages []string   `json:"reference_images,omitempty"`
	NeededBy        *time.Time `json:"needed_by,omitempty"`
}

func (CustomRequestDetails) OrderType() OrderType { return OrderTypeCustomRequest }

func (d CustomRequestDetails) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return NewMissingRequiredFieldError("description")
	}
	return nil
}

// DecodeDetails builds the details variant for t from its JSON form.
func DecodeDetails(t OrderType, raw []byte) (OrderDetails, error) {
	var (
		details OrderDetails
		err     error
	)
	switch t {
	case OrderTypeBulk:
		var d BulkDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case OrderTypePOD:
		var d PODDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case OrderTypeBoutique:
		var d BoutiqueDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case OrderTypeFabric:
		var d FabricDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case OrderTypeSouvenir:
		var d SouvenirDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case OrderTypeCustomRequest:
		var d CustomRequestDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, NewInvalidOrderTypeError(string(t))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s details: %w", t, err)
	}
	return details, nil
}

package transport

import (
	"github.com/Skotchmaster/checkout/internal/confirm"
	"github.com/Skotchmaster/checkout/internal/notify"
	"github.com/Skotchmaster/checkout/internal/validate"
	"github.com/google/uuid"
)

type AddLineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  uint      `json:"quantity"`
}

type UpdateLineRequest struct {
	Quantity uint `json:"quantity"`
}

// LocateRequest carries the device position. Omitted coordinates mean the device could not provide one.
type LocateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type PlaceOrderRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (r PlaceOrderRequest) Form() validate.Form {
	return validate.Form{
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		Description: r.Description,
	}
}

// Response wraps every API payload together with the notices raised while serving it.
type Response struct {
	Data    any                   `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
	Prompt  *confirm.Prompt       `json:"prompt,omitempty"`
	Notices []notify.Notice       `json:"notices"`
}

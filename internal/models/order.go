package models

import "strings"

type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentAtPickup PaymentMethod = "pay_at_pickup"
)

// DraftOrder contient les informations saisies au checkout. Jamais persisté.
type DraftOrder struct {
	Name          string          `json:"name" validate:"required,min=2,max=100"`
	Phone         string          `json:"phone" validate:"required,phone"`
	Email         string          `json:"email,omitempty" validate:"omitempty,email"`
	Address       string          `json:"address,omitempty" validate:"required_if=Type delivery,max=255"`
	Type          FulfillmentType `json:"type" validate:"required,oneof=pickup delivery"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=card pay_at_pickup"`
	Notes         string          `json:"notes,omitempty" validate:"max=500"`
}

// Normalize nettoie les champs saisis; l'adresse n'est envoyée qu'en livraison
func (d DraftOrder) Normalize() DraftOrder {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Email = strings.TrimSpace(d.Email)
	d.Address = strings.TrimSpace(d.Address)
	d.Notes = strings.TrimSpace(d.Notes)
	if d.Type != FulfillmentDelivery {
		d.Address = ""
	}
	return d
}

// PlacedOrder est la projection en lecture seule d'une commande créée par l'API
type PlacedOrder struct {
	ID                  string        `json:"id"`
	OrderNumber         string        `json:"orderNumber"`
	Total               int64         `json:"total"`
	Status              string        `json:"status,omitempty"`
	PaymentMethod       PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentClientSecret string        `json:"paymentClientSecret,omitempty"`
}

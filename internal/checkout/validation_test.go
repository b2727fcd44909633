package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto_storefront/internal/models"
)

func validDraft() models.DraftOrder {
	return models.DraftOrder{
		Name:          "Ana Lima",
		Phone:         "+33 6 12 34 56 78",
		Type:          models.FulfillmentPickup,
		PaymentMethod: models.PaymentAtPickup,
	}
}

func TestValidate_ValidPickup(t *testing.T) {
	assert.Nil(t, NewValidator().Validate(validDraft()))
}

func TestValidate_DeliveryRequiresAddress(t *testing.T) {
	draft := validDraft()
	draft.Type = models.FulfillmentDelivery

	fields := NewValidator().Validate(draft)
	assert.Equal(t, map[string]string{"address": "Ce champ est obligatoire"}, fields)

	draft.Address = "12 rue de la Paix, Paris"
	assert.Nil(t, NewValidator().Validate(draft))
}

func TestValidate_PickupWithoutAddress(t *testing.T) {
	draft := validDraft()
	draft.Address = ""
	assert.Nil(t, NewValidator().Validate(draft))
}

func TestValidate_FieldErrors(t *testing.T) {
	draft := models.DraftOrder{
		Name:          "A",
		Phone:         "abc",
		Email:         "not-an-email",
		Type:          "drone",
		PaymentMethod: "bitcoin",
	}

	fields := NewValidator().Validate(draft)

	assert.Equal(t, "Minimum 2 caractères", fields["name"])
	assert.Equal(t, "Numéro de téléphone invalide", fields["phone"])
	assert.Equal(t, "Adresse e-mail invalide", fields["email"])
	assert.Contains(t, fields["type"], "pickup, delivery")
	assert.Contains(t, fields["paymentMethod"], "card, pay_at_pickup")
}

func TestValidate_MissingRequired(t *testing.T) {
	fields := NewValidator().Validate(models.DraftOrder{})

	for _, key := range []string{"name", "phone", "type", "paymentMethod"} {
		assert.Equal(t, "Ce champ est obligatoire", fields[key], key)
	}
	_, hasEmail := fields["email"]
	assert.False(t, hasEmail)
}

func TestNormalize_DropsAddressForPickup(t *testing.T) {
	draft := validDraft()
	draft.Address = "somewhere"
	draft.Name = "  Ana  "

	n := draft.Normalize()
	assert.Empty(t, n.Address)
	assert.Equal(t, "Ana", n.Name)

	draft.Type = models.FulfillmentDelivery
	assert.Equal(t, "somewhere", draft.Normalize().Address)
}

func TestNewValidator_RegistersPhoneRule(t *testing.T) {
	var v *Validator
	require.NotPanics(t, func() { v = NewValidator() })

	d := validDraft()
	d.Phone = "not a phone"
	assert.Contains(t, v.Validate(d), "phone")

	d.Phone = "+33 6 12 34 56 78"
	assert.Nil(t, v.Validate(d))
}

package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"resto_storefront/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,19}$`)

// Validator applique le schéma déclaratif (tags `validate`) de DraftOrder
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("checkout: register phone validation: %v", err))
	}
	return &Validator{validate: v}
}

// Validate retourne les erreurs par champ (clé = nom JSON), nil si valide
func (v *Validator) Validate(draft models.DraftOrder) map[string]string {
	err := v.validate.Struct(draft)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "Ce champ est obligatoire"
	case "email":
		return "Adresse e-mail invalide"
	case "phone":
		return "Numéro de téléphone invalide"
	case "min":
		return fmt.Sprintf("Minimum %s caractères", fe.Param())
	case "max":
		return fmt.Sprintf("Maximum %s caractères", fe.Param())
	case "oneof":
		return fmt.Sprintf("Valeur invalide (attendu : %s)", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return "Valeur invalide"
	}
}

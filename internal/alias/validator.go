package alias

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/serroba/shortlink-web/internal/shortlink"
)

// Submission is a shorten request after trimming.
type Submission struct {
	URL        string `json:"url"        validate:"required,destination"`
	CustomSlug string `json:"customSlug" validate:"omitempty,alias"`
}

// Validator checks submissions against the alias and destination rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the "alias" and "destination" tags on a fresh
// validator instance.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	_ = v.RegisterValidation("alias", func(fl validator.FieldLevel) bool {
		return IsValidAlias(fl.Field().String())
	})
	_ = v.RegisterValidation("destination", func(fl validator.FieldLevel) bool {
		return IsValidDestination(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Submission trims both inputs and validates them. On failure the error is a
// *shortlink.ValidationError listing every rejected field.
func (v *Validator) Submission(destination, customSlug string) (Submission, error) {
	sub := Submission{
		URL:        strings.TrimSpace(destination),
		CustomSlug: strings.TrimSpace(customSlug),
	}

	err := v.validate.Struct(sub)
	if err == nil {
		return sub, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return sub, err
	}

	verr := &shortlink.ValidationError{}

	for _, fe := range fieldErrs {
		msg := DestinationMessage
		if fe.Field() == "customSlug" {
			msg = AliasMessage
		}

		value, _ := fe.Value().(string)
		verr.Fields = append(verr.Fields, shortlink.FieldError{
			Field:   fe.Field(),
			Message: msg,
			Value:   value,
		})
	}

	return sub, verr
}

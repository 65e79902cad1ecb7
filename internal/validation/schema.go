// Package validation holds the rule sets for the listing creation form and
// for user credentials.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"prolar/internal/apperrors"
	"prolar/internal/models"
)

var (
	digitsPattern = regexp.MustCompile(`^\d+$`)
	phonePattern  = regexp.MustCompile(`^\d{11,12}$`)
)

// messages overrides the generic translation for "field.tag" pairs.
var messages = map[string]string{
	"name.min":            "title is required",
	"area.min":            "area is required",
	"rooms.min":           "number of rooms is required",
	"bathrooms.min":       "number of bathrooms is required",
	"garages.min":         "number of garages is required",
	"price.min":           "price is required",
	"priceType.min":       "price type is required",
	"priceType.pricetype": "price type must be one of daily, weekly, weekend, monthly",
	"city.min":            "city is required",
	"address.min":         "address is required",
	"postalCode.len":      "postal code must have 8 digits",
	"postalCode.digits":   "postal code must contain only digits",
	"phone.required":      "phone is required",
	"phone.phone":         "invalid phone number",
	"description.min":     "description is required",
	"email.required":      "email is required",
	"email.email":         "enter a valid email",
	"password.min":        "password must have at least 6 characters",
}

type Schema struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewSchema() (*Schema, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err := v.RegisterValidation("pricetype", func(fl validator.FieldLevel) bool {
		return models.PriceType(fl.Field().String()).Valid()
	}); err != nil {
		return nil, err
	}

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	return &Schema{validate: v, trans: trans}, nil
}

// MustNewSchema is NewSchema for package-level wiring and tests.
func MustNewSchema() *Schema {
	s, err := NewSchema()
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateListing returns nil when the form is acceptable.
func (s *Schema) ValidateListing(form models.ListingForm) apperrors.FieldErrors {
	return s.check(form)
}

// ValidateListingFields validates the whole form but only reports the given
// fields. Used while the user is still filling the form in.
func (s *Schema) ValidateListingFields(form models.ListingForm, fields ...string) apperrors.FieldErrors {
	all := s.check(form)
	if len(fields) == 0 || all == nil {
		return all
	}

	out := apperrors.FieldErrors{}
	for _, f := range fields {
		if msg, ok := all[f]; ok {
			out[f] = msg
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *Schema) ValidateSignIn(c models.Credentials) apperrors.FieldErrors {
	return s.check(c)
}

func (s *Schema) ValidateSignUp(r models.Registration) apperrors.FieldErrors {
	fe := s.check(r)
	if _, ok := fe["name"]; ok {
		fe["name"] = "name is required"
	}
	return fe
}

func (s *Schema) check(v any) apperrors.FieldErrors {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.FieldErrors{"_": err.Error()}
	}

	out := make(apperrors.FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := messages[field+"."+fe.Tag()]; ok {
			out[field] = msg
			continue
		}
		out[field] = fe.Translate(s.trans)
	}
	return out
}

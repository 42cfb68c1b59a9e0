package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type requestValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

var loadValidator = sync.OnceValues(func() (*requestValidator, error) {
	v := validator.New()

	trans, ok := ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		return nil, errors.New("no 'en' translator")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("registering translations: %w", err)
	}

	// Report fields by their JSON names, the way callers encode requests.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &requestValidator{v: v, trans: trans}, nil
})

// check validates val against its declared tags. Invalid fields come
// back as FieldErrors.
func check(val any) error {
	rv, err := loadValidator()
	if err != nil {
		return fmt.Errorf("loading validator: %w", err)
	}

	err = rv.v.Struct(val)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe),
			Err:   rv.message(fe),
		})
	}
	return fields
}

// fieldPath drops the struct name from the namespace, leaving e.g.
// "url" or "header[1].name".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func (rv *requestValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "http_url":
		return "must be an absolute http or https URL"
	}
	return fe.Translate(rv.trans)
}

// FieldError is a single invalid field of a [Request].
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors collects every invalid field of a [Request].
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	var b strings.Builder
	for i, f := range fe {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Field)
		b.WriteString(": ")
		b.WriteString(f.Err)
	}
	return b.String()
}

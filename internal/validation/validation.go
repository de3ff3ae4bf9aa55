// Package validation wraps a shared go-playground validator. Failures are
// reported with the json name of the offending field so the message can go
// straight into an API error response.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Error describes the first field that failed validation.
type Error struct {
	Field   string
	Tag     string
	Param   string
	message string
}

func (e *Error) Error() string { return e.message }

// Errorf builds an *Error for checks the struct tags cannot express.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Tag: "custom", message: fmt.Sprintf(format, args...)}
}

func get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s and returns nil or an *Error.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Field: "unknown", Tag: "unknown", message: err.Error()}
	}

	fe := fieldErrs[0]
	return &Error{
		Field:   fe.Field(),
		Tag:     fe.Tag(),
		Param:   fe.Param(),
		message: translate(fe),
	}
}

var messages = map[string]string{
	"required":  "%s is required",
	"latitude":  "%s must be a valid latitude (-90 to 90)",
	"longitude": "%s must be a valid longitude (-180 to 180)",
}

var messagesWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := messages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messagesWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch {
	case tag == "max" && isString:
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case tag == "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case tag == "min" && isString:
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case tag == "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}

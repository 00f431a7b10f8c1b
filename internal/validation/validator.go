// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

// Package validation wraps go-playground/validator v10 with a singleton
// instance, ITDash-specific tags and translated error messages.
//
// Field names in errors use the json tag, so a failure on
//
//	type ClientRequest struct {
//	    Event string `json:"event" validate:"required,oneof=getDashboardEvent getAvayaCdr"`
//	}
//
// is reported against "event", matching what the browser sent.
//
// Custom tags:
//   - upn: a user principal name (local@domain)
//   - hostname_or_unknown: a host name or the literal "unknown"
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	upnPattern      = regexp.MustCompile(`^[^@\s\\]+@[^@\s]+\.[^@\s]+$`)
	hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,252}$`)
)

// ValidationError is a single field failure.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the json name of the failing field.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the tag parameter (e.g., "720" for "max=720").
func (e *ValidationError) Param() string {
	return e.param
}

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} {
	return e.value
}

func (e *ValidationError) Error() string {
	return e.message
}

// FieldDetail is the wire form of one failure, sent back to clients in the
// "detail" member of an error reply.
type FieldDetail struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// RequestValidationError collects every field failure of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Details converts the failures into their wire form.
func (ve *RequestValidationError) Details() []FieldDetail {
	details := make([]FieldDetail, len(ve.errors))
	for i, err := range ve.errors {
		details[i] = FieldDetail{Field: err.field, Tag: err.tag, Message: err.message}
	}
	return details
}

// NewFieldError builds a single-field RequestValidationError for checks that
// happen outside struct tags (e.g., a request payload of the wrong JSON type).
func NewFieldError(field, tag, message string) *RequestValidationError {
	return &RequestValidationError{errors: []ValidationError{{field: field, tag: tag, message: message}}}
}

// GetValidator returns the shared validator, initializing it once.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Registration only fails on an empty tag or nil func.
		_ = validate.RegisterValidation("upn", func(fl validator.FieldLevel) bool {
			return upnPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("hostname_or_unknown", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "unknown" || hostnamePattern.MatchString(s)
		})
	})

	return validate
}

// ValidateStruct validates s. It returns nil on success.
func ValidateStruct(s interface{}) *RequestValidationError {
	return fromValidatorError(GetValidator().Struct(s))
}

// ValidateVar validates a single value against a tag expression, reporting
// failures under field.
func ValidateVar(field string, value interface{}, tag string) *RequestValidationError {
	verr := fromValidatorError(GetValidator().Var(value, tag))
	if verr == nil {
		return nil
	}
	for i := range verr.errors {
		verr.errors[i].field = field
		verr.errors[i].message = strings.Replace(verr.errors[i].message, "''", field, 1)
	}
	return verr
}

func fromValidatorError(err error) *RequestValidationError {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewFieldError("unknown", "unknown", err.Error())
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates take the field name.
var errorMessageTemplates = map[string]string{
	"required":            "%s is required",
	"upn":                 "%s must be a user principal name (user@domain)",
	"hostname_or_unknown": "%s must be a host name",
	"numeric":             "%s must be numeric",
}

// errorMessageWithParam take the field name and the tag parameter.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if field == "" {
		field = "''"
	}
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

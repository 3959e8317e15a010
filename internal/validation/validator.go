// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the format accepted by the ymd tag.
const DateLayout = "2006-01-02"

var (
	validate     *validator.Validate
	validateOnce sync.Once

	tokenHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// ValidationError is one failed field.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the failing field's JSON name.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the failing validation tag.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "100" for max=100.
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failed field of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the failed fields.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i := range ve.errors {
		messages[i] = ve.errors[i].message
	}
	return strings.Join(messages, "; ")
}

// FieldDetail is the wire form of one failed field.
type FieldDetail struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Details returns the failed fields in wire form.
func (ve *RequestValidationError) Details() []FieldDetail {
	out := make([]FieldDetail, len(ve.errors))
	for i, e := range ve.errors {
		out[i] = FieldDetail{Field: e.field, Tag: e.tag, Message: e.message}
	}
	return out
}

// GetValidator returns the shared validator. Field names in errors come
// from json tags.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})

		mustRegister(validate, "ymd", isDate)
		mustRegister(validate, "customer_id", isCustomerID)
		mustRegister(validate, "token_hash", isTokenHash)
		validate.RegisterStructValidation(dateRangeOrder, DateRangeRequest{})
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidateStruct validates s and returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []ValidationError{{
			field:   "request",
			tag:     "invalid",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

// isDate accepts an empty value; pair it with required when the date is
// mandatory.
func isDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// isCustomerID accepts ten digits with optional dashes (123-456-7890).
func isCustomerID(fl validator.FieldLevel) bool {
	id := strings.ReplaceAll(strings.TrimSpace(fl.Field().String()), "-", "")
	if len(id) != 10 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isTokenHash(fl validator.FieldLevel) bool {
	return tokenHashPattern.MatchString(fl.Field().String())
}

// dateRangeOrder rejects an end date before the start date.
func dateRangeOrder(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(DateRangeRequest)
	if !ok || req.StartDate == "" || req.EndDate == "" {
		return
	}
	start, err1 := time.Parse(DateLayout, req.StartDate)
	end, err2 := time.Parse(DateLayout, req.EndDate)
	if err1 != nil || err2 != nil {
		return
	}
	if end.Before(start) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"ymd":         "%s must be a date in YYYY-MM-DD format",
	"customer_id": "%s must be a 10-digit Google Ads customer ID",
	"token_hash":  "%s must be a 64-character lowercase hex SHA-256 digest",
}

var errorMessageWithParam = map[string]string{
	"required_with": "%s is required when %s is set",
	"gtefield":      "%s must not be before %s",
	"oneof":         "%s must be one of: %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, field, paramName(fe.Param()))
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// paramName maps Go field names in cross-field params to their JSON names.
func paramName(param string) string {
	switch param {
	case "StartDate":
		return "start_date"
	case "EndDate":
		return "end_date"
	default:
		return param
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "compfinder/internal/errors"
	"compfinder/internal/infrastructure"
)

// DefaultMaxBodySize bounds JSON request bodies.
const DefaultMaxBodySize = 64 * 1024

// Validator decodes JSON request bodies and validates them using struct tags
type Validator struct {
	validator   *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a new request validator
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	v.RegisterValidation("safepath", isSafePath)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator:   v,
		logger:      infrastructure.WithComponent(logger, "validation"),
		maxBodySize: DefaultMaxBodySize,
	}
}

// DecodeJSON reads r's body into dst and validates it. An empty body leaves dst at its zero
// value before validation. Errors are *apierrors.APIError values ready for the error handler.
func (v *Validator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body != nil {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, v.maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					"Request body exceeds maximum allowed size", map[string]int64{"max_size": v.maxBodySize})
			}
			return apierrors.InvalidRequestWithError(err)
		}

		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, dst); err != nil {
				v.logger.DebugContext(r.Context(), "invalid JSON body", slog.String("error", err.Error()))
				return apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidRequest, "Request body contains invalid JSON")
			}
		}
	}

	return v.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// Var validates a single value, such as a query parameter, against tag.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.validator.Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierrors.InvalidRequestWithError(err)
	}
	fe := fieldErrs[0]
	return apierrors.NewValidationErrors([]apierrors.ValidationError{
		{Field: field, Message: formatValidationError(field, fe.Tag(), fe.Param())},
	})
}

// formatValidationError formats validation error messages
func formatValidationError(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "safepath":
		return fmt.Sprintf("%s must be a valid file path", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// isSafePath rejects paths the OS cannot represent
func isSafePath(fl validator.FieldLevel) bool {
	return !strings.ContainsRune(fl.Field().String(), 0)
}

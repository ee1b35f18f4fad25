package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/athorsen/bestiary-api/internal/importer"
	"github.com/athorsen/bestiary-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes by error
// identity, never by message text, so internal details cannot leak.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrCreatureNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrCreatureNameExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, importer.ErrLimitExceeded):
		return http.StatusBadRequest

	case errors.Is(err, importer.ErrSourceUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for the error, without
// the internal error text.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrCreatureNotFound):
		return "Creature not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Import task not found"

	case errors.Is(err, store.ErrCreatureNameExists):
		return "A creature with this name already exists"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, importer.ErrLimitExceeded):
		return "Import limit exceeds the allowed maximum"

	case errors.Is(err, importer.ErrSourceUnavailable):
		return "Upstream source is unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError reduces a struct-validation error to a clean
// user-facing message without the validator's internal formatting.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'startImportRequest.Limit' Error:Field validation
		// for 'Limit' failed on the 'min' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "value too small"
	case "max":
		return "value too large"
	case "gte":
		return "value too small"
	case "lte":
		return "value too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

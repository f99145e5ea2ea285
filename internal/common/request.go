package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validator "github.com/go-playground/validator/v10"
)

// DecodeJSON decodes the request body into dst and validates it. An empty body
// decodes to the zero value. Failures are returned as *AppError.
func DecodeJSON(r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, errors.Join(ErrInvalidPayload, err))
		}
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, errors.Join(ErrInvalidPayload, err))
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			appErr := NewAppError("VALIDATION_FAILED", "payload validation failed", http.StatusUnprocessableEntity, errors.Join(ErrInvalidPayload, err))
			appErr.Details = details
			return appErr
		}
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, errors.Join(ErrInvalidPayload, err))
	}
	return nil
}

// WriteAppError renders err when it is an *AppError and reports whether it did.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	JSONError(w, appErr.Status(), appErr.code(), appErr.Message, appErr.Details)
	return true
}

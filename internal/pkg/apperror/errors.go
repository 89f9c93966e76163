package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
)

// DefaultRetryAfter is advertised to clients on StorageUnavailable.
const DefaultRetryAfter = 5 * time.Second

type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	StatusCode int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Err        error         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func BadRequest(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// InvalidImage keeps the cause in the message: the uploader needs to know
// what to fix.
func InvalidImage(err error) *AppError {
	return &AppError{
		Code:       "INVALID_IMAGE",
		Message:    err.Error(),
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func ProcessingFailed(err error) *AppError {
	return &AppError{
		Code:       "PROCESSING_FAILED",
		Message:    "the image could not be processed",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func StorageUnavailable(err error) *AppError {
	return &AppError{
		Code:       "STORAGE_UNAVAILABLE",
		Message:    "storage is temporarily unavailable, please retry",
		StatusCode: http.StatusServiceUnavailable,
		RetryAfter: DefaultRetryAfter,
		Err:        err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromDomain maps pipeline errors onto their HTTP representation.
func FromDomain(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrInvalidImage):
		return InvalidImage(err)
	case errors.Is(err, domain.ErrInvalidKind):
		return &AppError{Code: "INVALID_KIND", Message: err.Error(), StatusCode: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrInvalidAssetURL):
		return &AppError{Code: "INVALID_URL", Message: err.Error(), StatusCode: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrStorageUnavailable):
		return StorageUnavailable(err)
	case errors.Is(err, domain.ErrProcessingFailed):
		return ProcessingFailed(err)
	default:
		return Internal(err)
	}
}

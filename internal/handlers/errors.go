package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docconv/internal/domain"
)

// StatusForKind maps a conversion error kind to an HTTP status.
func StatusForKind(k domain.Kind) int {
	switch k {
	case domain.KindInvalidRequest:
		return fiber.StatusBadRequest
	case domain.KindAuthenticationFailed:
		return fiber.StatusForbidden
	case domain.KindInvalidFormat, domain.KindUnsupportedContent:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func kindForStatus(code int) domain.Kind {
	switch {
	case code == fiber.StatusForbidden:
		return domain.KindAuthenticationFailed
	case code == fiber.StatusUnprocessableEntity:
		return domain.KindInvalidFormat
	case code >= 400 && code < 500:
		return domain.KindInvalidRequest
	default:
		return domain.KindInternal
	}
}

// ErrorResponse turns any handler error into the status, kind and message of
// the JSON error envelope. Internal details are not exposed.
func ErrorResponse(err error) (int, domain.Kind, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, kindForStatus(fe.Code), fe.Message
	}
	if domain.IsCanceled(err) {
		return fiber.StatusRequestTimeout, domain.KindInternal, "Conversion was cancelled"
	}
	var ce *domain.ConversionError
	if errors.As(err, &ce) && ce.Kind != domain.KindInternal {
		return StatusForKind(ce.Kind), ce.Kind, err.Error()
	}
	return fiber.StatusInternalServerError, domain.KindInternal, "Internal Server Error"
}

package serverutils

import (
	"errors"

	"ai-chatwidget-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps pipeline error kinds onto HTTP statuses and the
// JSON envelope. Unknown errors become 500 without leaking internals.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message, "http_error"))
		}

		var ae *apperror.Error
		if errors.As(err, &ae) {
			return ctx.Status(statusForKind(ae.Kind)).JSON(ErrorResponse(ae.Message, string(ae.Kind)))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal error", "internal_error"))
	}
}

func statusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindConfigNotFound, apperror.KindAttachmentNotFound:
		return fiber.StatusNotFound
	case apperror.KindValidation, apperror.KindUnsupportedFileType:
		return fiber.StatusBadRequest
	case apperror.KindProviderCallFailure, apperror.KindRetrievalUploadFailure:
		return fiber.StatusBadGateway
	case apperror.KindModeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

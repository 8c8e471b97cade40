package rest

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
)

// statusFor はエラー種別を HTTP ステータスに対応付ける
func statusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fiber.StatusBadRequest
	}

	switch apperror.KindOf(err) {
	case apperror.ErrNotFound:
		return fiber.StatusNotFound
	case apperror.ErrValidation:
		return fiber.StatusBadRequest
	case apperror.ErrExternal:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// newErrorHandler は全エラーを {"detail": ...} 形式で返す fiber.ErrorHandler を作成する
func newErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		} else {
			logger.Warn("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		}
		return c.Status(status).JSON(ErrorResponse{Detail: err.Error()})
	}
}

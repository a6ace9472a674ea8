package server

import (
	"errors"
	"time"

	fiber "github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
)

type localsKey int

const requestIDKey localsKey = iota

// requestID echoes the caller's X-Request-ID or assigns a new UUID.
func requestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Locals(requestIDKey, id)
		return c.Next()
	}
}

func requestIDFrom(c fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

func accessLog(logger *zap.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// the error handler writes the response after the chain unwinds
			status, _ = classify(err)
		}
		logger.Info("request",
			zap.String("request_id", requestIDFrom(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes_in", len(c.Body())),
		)
		return err
	}
}

// classify maps an error to an HTTP status and the detail returned to the client.
func classify(err error) (int, string) {
	var (
		pe *analysis.ParseError
		ce *analysis.ComputationError
		fe *fiber.Error
	)
	switch {
	case errors.As(err, &pe):
		return fiber.StatusBadRequest, pe.Error()
	case errors.As(err, &ce):
		return fiber.StatusInternalServerError, ce.Error()
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status, detail := classify(err)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", requestIDFrom(c)),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}
}

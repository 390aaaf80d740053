package logger

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger and returns it.
func Init(logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "identity-sync").
			Logger()
	}

	return log.Logger
}

// WithDID adds the user DID to logger context
func WithDID(logger zerolog.Logger, did string) zerolog.Logger {
	return logger.With().Str("did", did).Logger()
}

// WithRequestID adds the request id to logger context
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// RequestLogger writes one line per handled request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// Run the error handler here so the logged status is the one sent.
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()

		requestID, _ := c.Locals("requestid").(string)
		reqLog := WithRequestID(log.Logger, requestID)
		event := reqLog.Info()
		if status >= fiber.StatusInternalServerError {
			event = reqLog.Error()
		} else if status >= fiber.StatusBadRequest {
			event = reqLog.Warn()
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("[HTTP] request handled")

		return nil
	}
}

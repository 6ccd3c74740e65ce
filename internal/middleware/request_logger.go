package middleware

import (
	"log/slog"
	"time"

	"catalog/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one structured record per request. It expects the requestid
// middleware to run first and puts the request ID on the user context so handler
// and service logs carry it too.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.GetRespHeader(fiber.HeaderXRequestID)
		if requestID != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), requestID))
		}

		if err := c.Next(); err != nil {
			// Let the app error handler set the status before it is logged.
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		duration := time.Since(start)

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= fiber.StatusBadRequest {
			level = slog.LevelWarn
		}

		logger.Log(c.UserContext(), level, "HTTP request completed",
			slog.String("http.request.method", c.Method()),
			slog.String("http.route", route),
			slog.String("url.path", c.Path()),
			slog.Int("http.response.status_code", status),
			slog.Int("http.response.body.size", len(c.Response().Body())),
			slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
			slog.String("client.address", c.IP()),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		)
		return nil
	}
}

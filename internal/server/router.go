package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/fetch"
)

// Fetcher is the part of fetch.Fetcher the service depends on. Tests inject
// fakes through it.
type Fetcher interface {
	FetchInEra(ctx context.Context, requestURL, cacheKey string, behavior fetch.Behavior, required string) ([]byte, era.Era, bool)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger  *logrus.Logger
	Fetcher Fetcher
	Clock   *era.Clock
	// Behavior applies when a request carries no behavior query parameter.
	Behavior   fetch.Behavior
	ListenPort int
}

const (
	contextKeyRequestID = "_anyfetch_request_id"

	// HeaderEra reports the era the fetch was evaluated in, read under the
	// store lock.
	HeaderEra = "X-Any-Fetch-Era"
)

// NewApp builds a Fiber application with request-id middleware, structured
// error handling and the /fetch route.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Clock == nil {
		return nil, errors.New("era clock is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())

	app.Get("/fetch", fetchHandler(opts))

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID 并回写到响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// fetchHandler 把一次 HTTP 请求视为一个工作单元：默认先推进 era，再执行抓取。
func fetchHandler(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		rawURL := strings.TrimSpace(c.Query("url"))
		if rawURL == "" {
			return renderError(c, opts.Logger, fiber.StatusBadRequest, "url_required", nil)
		}

		behavior := opts.Behavior
		if raw := strings.TrimSpace(c.Query("behavior")); raw != "" {
			parsed, err := fetch.ParseBehavior(raw)
			if err != nil {
				return renderError(c, opts.Logger, fiber.StatusBadRequest, "invalid_behavior", logrus.Fields{
					"behavior": raw,
				})
			}
			behavior = parsed
		}

		if c.Query("era") != "keep" {
			opts.Clock.Advance()
		}

		// 并发请求可能在本请求持锁前再次推进 era，响应头报告抓取实际使用的 era。
		body, current, ok := opts.Fetcher.FetchInEra(c.Context(), rawURL, c.Query("key"), behavior, c.Query("require"))
		c.Set(HeaderEra, strconv.FormatUint(uint64(current), 10))
		if !ok {
			return renderError(c, opts.Logger, fiber.StatusBadGateway, "fetch_failed", logrus.Fields{
				"url":      rawURL,
				"behavior": behavior.String(),
				"era":      uint64(current),
			})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(body)
	}
}

func renderError(c fiber.Ctx, logger *logrus.Logger, status int, code string, extra logrus.Fields) error {
	fields := logrus.Fields{
		"action":     "http_error",
		"error":      code,
		"status":     status,
		"request_id": RequestID(c),
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.WithFields(fields).Warn("request rejected")

	return c.Status(status).JSON(fiber.Map{
		"error": code,
	})
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

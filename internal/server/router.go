package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger  *logrus.Logger
	Handler *AssetHandler
	// URIRoots are the normalized uri roots to mount the handler under.
	// Multiple mount points share the one handler and therefore one cache.
	URIRoots []string
}

const contextKeyRequestID = "_assethub_request_id"

// NewApp builds a Fiber application with the asset handler mounted at every
// uri root, plus request-id and panic-recovery middleware.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("asset handler is required")
	}
	if len(opts.URIRoots) == 0 {
		return nil, errors.New("at least one uri root is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	for _, root := range opts.URIRoots {
		pattern, err := mountPattern(root)
		if err != nil {
			return nil, err
		}
		app.Get(pattern, opts.Handler.Handle)
	}

	return app, nil
}

// mountPattern turns a normalized uri root into the Fiber wildcard route it
// is served under, e.g. "/static/" → "/static/*".
func mountPattern(uriRoot string) (string, error) {
	if !strings.HasPrefix(uriRoot, "/") {
		return "", fmt.Errorf("uri root %q must start with /", uriRoot)
	}
	if !strings.HasSuffix(uriRoot, "/") {
		uriRoot += "/"
	}
	return uriRoot + "*", nil
}

// requestIDMiddleware 为每个请求生成 X-Request-ID，便于日志串联。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

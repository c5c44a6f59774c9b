// routes.go - Route registration and middleware
package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xaenox/bwe-assistant/internal/catalog"
	"go.uber.org/zap"
)

// Dependencies holds everything the HTTP surface needs
type Dependencies struct {
	Service     *catalog.Service
	Logger      *zap.Logger
	Development bool
	BodyLimit   string
}

// NewServer builds a configured echo instance with all routes registered.
func NewServer(deps Dependencies) (*echo.Echo, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	SetupMiddleware(e, deps)
	RegisterRoutes(e, NewHandler(deps.Service, deps.Logger))
	return e, nil
}

// RegisterRoutes registers all routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.HandleHealth)

	// Pages
	e.GET("/", h.HandleIndex)
	e.GET("/category/:category", h.HandleIndex)

	// Files
	e.GET("/api/files", h.HandleListFiles)
	e.POST("/upload_file", h.HandleUploadFile)
	e.POST("/delete_file/:id", h.HandleDeleteFile)
	e.POST("/update_category", h.HandleUpdateCategory)
	e.POST("/search_files", h.HandleSearchFiles)
	e.GET("/debug/files", h.HandleDebugFiles)

	// Taxonomy
	e.POST("/add_category", h.HandleAddCategory)
	e.POST("/delete_category", h.HandleDeleteCategory)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, deps Dependencies) {
	e.HTTPErrorHandler = ErrorHandler(deps.Logger, deps.Development)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			deps.Logger.Info("Request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	e.Use(middleware.Recover())

	limit := deps.BodyLimit
	if limit == "" {
		limit = "32M"
	}
	e.Use(middleware.BodyLimit(limit))
}

package httpserver

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/prockx/storefront/pkg/db"
	middleware "github.com/prockx/storefront/pkg/middleware/auth"
	"github.com/prockx/storefront/pkg/middleware/csrf"
	loggingmw "github.com/prockx/storefront/pkg/middleware/logging"
)

type Deps struct {
	DB *gorm.DB

	AuthHandler     *AuthHTTP
	UsersHandler    *UsersHTTP
	ProductsHandler *ProductsHTTP
	OrdersHandler   *OrdersHTTP

	JWTSecret []byte
	Refresher middleware.Refresher
}

type Options struct {
	Logger *slog.Logger

	CORSOrigins []string
	CSRF        bool
	// CSRFSecure marks the XSRF-TOKEN cookie Secure.
	CSRFSecure  bool

	// Requests per minute per client IP.
	AuthRateLimit int
	APIRateLimit  int

	BodyLimit string
}

// NewServer builds the echo instance with the global middleware chain and
// every route registered.
func NewServer(d *Deps, opts Options) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "10K"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLoggerWithConfig(loggingmw.Config{
		Logger:        opts.Logger,
		Skipper:       loggingmw.SkipPaths("/health/live", "/health/ready"),
		SlowThreshold: time.Second,
		UserIDKey:     middleware.CtxUserID,
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     opts.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, "X-CSRF-Token",
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(echomw.BodyLimit(opts.BodyLimit))
	if opts.CSRF {
		cfg := csrf.DefaultConfig()
		cfg.Secure = opts.CSRFSecure
		cfg.SkipPaths = []string{"/api/auth/login", "/api/auth/register", "/api/auth/refresh"}
		e.Use(csrf.Middleware(cfg))
	}

	Register(e, d, opts)
	return e
}

func rateLimiter(perMinute int) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
		},
	})
}

func Register(e *echo.Echo, d *Deps, opts Options) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)

	e.GET("/debug/vars", echo.WrapHandler(expvar.Handler()), authMW.RequireAdmin)

	api := e.Group("/api")
	if opts.APIRateLimit > 0 {
		api.Use(rateLimiter(opts.APIRateLimit))
	}
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":    "success",
			"message":   "server is running",
			"timestamp": time.Now().UTC(),
		})
	})

	authGroup := api.Group("/auth")
	if opts.AuthRateLimit > 0 {
		authGroup.Use(rateLimiter(opts.AuthRateLimit))
	}
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/refresh", d.AuthHandler.Refresh)
	authGroup.POST("/logout", d.AuthHandler.Logout)
	authGroup.GET("/me", d.AuthHandler.Me, authMW.RequireAuth)

	users := api.Group("/users", authMW.RequireAuth)
	users.GET("/profile", d.UsersHandler.Profile)
	users.PUT("/profile", d.UsersHandler.UpdateProfile)
	users.GET("", d.UsersHandler.List, middleware.AdminOnly)
	users.DELETE("/:id", d.UsersHandler.Delete, middleware.AdminOnly)

	products := api.Group("/products")
	products.GET("", d.ProductsHandler.List)
	products.GET("/categories", d.ProductsHandler.Categories)
	products.GET("/:id", d.ProductsHandler.Get)

	adminProducts := products.Group("", authMW.RequireAdmin)
	adminProducts.POST("", d.ProductsHandler.Create)
	adminProducts.PUT("/:id", d.ProductsHandler.Patch)
	adminProducts.DELETE("/:id", d.ProductsHandler.Delete)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrdersHandler.Create)
	orders.GET("/myorders", d.OrdersHandler.Mine)
	orders.GET("/export", d.OrdersHandler.Export)
	orders.GET("", d.OrdersHandler.List)
	orders.GET("/:id", d.OrdersHandler.Get)
	orders.PUT("/:id/status", d.OrdersHandler.UpdateStatus)
}

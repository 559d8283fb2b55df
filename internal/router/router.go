package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"menuservice/internal/auth"
	"menuservice/internal/config"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/handler"
	"menuservice/internal/logger"
	"menuservice/internal/metrics"
	"menuservice/internal/model"
	"menuservice/internal/service"
)

const (
	bodyLimit       = "10K"
	rateLimitWindow = 15 * time.Minute
	rateLimitMax    = 100
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	m *metrics.Metrics,
	guard *auth.Guard,
	reviewOwners auth.OwnerResolver,
	authHandler *handler.AuthHandler,
	menuHandler *handler.MenuHandler,
	reviewHandler *handler.ReviewHandler,
) {
	e.HTTPErrorHandler = apperrors.ErrorHandler
	e.Validator = &CustomValidator{validator: service.NewValidator()}

	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(rateLimiter())
	e.Use(m.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	authenticate := guard.Authenticate()
	optional := guard.OptionalAuth()
	adminOnly := guard.Require(auth.AnyOf(model.RoleAdmin))

	// Auth routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/logout", authHandler.Logout, optional)
	api.GET("/auth/me", authHandler.Me, authenticate)
	api.PUT("/auth/updatepassword", authHandler.UpdatePassword, authenticate)

	// Menu routes
	api.GET("/menu", menuHandler.ListMenuItems)
	api.GET("/menu/:id", menuHandler.GetMenuItem, optional)
	api.POST("/menu", menuHandler.CreateMenuItem, authenticate, adminOnly)
	api.PUT("/menu/:id", menuHandler.UpdateMenuItem, authenticate, adminOnly)
	api.DELETE("/menu/:id", menuHandler.DeleteMenuItem, authenticate, adminOnly)
	api.GET("/categories", menuHandler.ListCategories)

	// Review routes
	reviewOwner := guard.Require(auth.OwnerOrAdmin("review", reviewOwners, "id"))
	api.GET("/menu/:menuId/reviews", reviewHandler.ListReviews)
	api.POST("/menu/:menuId/reviews", reviewHandler.CreateReview,
		authenticate, guard.Require(auth.AnyOf(model.RoleUser, model.RoleAdmin)))
	api.PUT("/reviews/:id", reviewHandler.UpdateReview, authenticate, reviewOwner)
	api.DELETE("/reviews/:id", reviewHandler.DeleteReview, authenticate, reviewOwner)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.FromEcho(c).Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"remote_ip", v.RemoteIP,
			)
			return nil
		},
	})
}

// rateLimiter allows rateLimitMax requests per client IP per window.
func rateLimiter() echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(rateLimitMax) / rateLimitWindow.Seconds()),
		Burst:     rateLimitMax,
		ExpiresIn: rateLimitWindow,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return apperrors.NewHTTPError(http.StatusTooManyRequests,
				"Too many requests from this IP, please try again later", "RATE_LIMITED")
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *service.Validator
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Validate(i)
}

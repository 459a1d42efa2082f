package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/server/response"
	"github.com/oggyb/muzz-match/internal/storage"
)

// NewHTTPServer builds the echo instance: public /healthz, /metrics and
// /photos/*, and an authenticated /v1 group for every RouteRegistrar.
func NewHTTPServer(appCtx *app.AppContext, registrars ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = errorHandler(appCtx.Logger)

	e.Use(middleware.Recover())
	e.Use(requestID(appCtx.Logger))
	e.Use(requestLogger(appCtx.Logger))

	e.GET("/healthz", healthz(appCtx))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if appCtx.Photos != nil {
		e.GET("/photos/*", servePhoto(appCtx.Photos))
	}

	v1 := e.Group("/v1", bearerAuth(appCtx.Tokens))
	for _, r := range registrars {
		r.RegisterRoutes(v1)
	}
	return e
}

// StartHTTPServer serves e on the configured address. A Shutdown returns nil.
func StartHTTPServer(appCtx *app.AppContext, e *echo.Echo) error {
	addr := fmt.Sprintf("%s:%s", appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server on %s: %w", addr, err)
	}
	return nil
}

func healthz(appCtx *app.AppContext) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true
		if sqlDB, err := appCtx.DB.DB(); err != nil {
			checks["db"], healthy = err.Error(), false
		} else if err := sqlDB.PingContext(ctx); err != nil {
			checks["db"], healthy = err.Error(), false
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			checks["redis"], healthy = err.Error(), false
		}

		if !healthy {
			return response.Error(c, http.StatusServiceUnavailable, "UNAVAILABLE", "dependency check failed", fmt.Sprint(checks))
		}
		return response.Success(c, http.StatusOK, checks, "ok")
	}
}

func servePhoto(photos *storage.PhotoStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Param("*")
		if key == "" || strings.Contains(key, "..") {
			return echo.ErrNotFound
		}
		r, contentType, err := photos.Open(c.Request().Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			return echo.ErrNotFound
		}
		if err != nil {
			return err
		}
		defer r.Close()
		c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		return c.Stream(http.StatusOK, contentType, r)
	}
}

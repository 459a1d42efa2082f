package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/oggyb/muzz-match/internal/auth"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/server/response"
)

// requestValidator plugs go-playground/validator into echo's c.Validate.
type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// requestID generates or extracts the X-Request-ID and stores a
// request-scoped logger in the request context.
func requestID(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			ctx := logger.IntoContext(c.Request().Context(), base.With(slog.String("request_id", id)))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// requestLogger logs one line per request, at Warn for 4xx and Error for 5xx.
func requestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// render now so the logged status is the one the client sees
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			log, ok := logger.FromContext(req.Context())
			if !ok {
				log = base
			}
			level := slog.LevelInfo
			if res.Status >= 400 {
				level = slog.LevelWarn
			}
			if res.Status >= 500 {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			log.LogAttrs(req.Context(), level, "HTTP Request", attrs...)
			return nil
		}
	}
}

// bearerAuth resolves "Authorization: Bearer <jwt>" into the caller id.
func bearerAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := tokens.FromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return response.Unauthorized(c, err.Error())
			}
			ctx := auth.WithUserID(c.Request().Context(), userID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

var httpErrorCodes = map[int]string{
	http.StatusBadRequest:            svcErr.KindInvalidInput.Code(),
	http.StatusUnauthorized:          svcErr.KindUnauthenticated.Code(),
	http.StatusNotFound:              svcErr.KindNotFound.Code(),
	http.StatusRequestEntityTooLarge: svcErr.KindInvalidInput.Code(),
}

// errorHandler renders every handler error as the response envelope.
// Service errors arrive as gRPC statuses and are decoded back to their kind.
func errorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			resp     response.Response
			httpErr  *echo.HTTPError
			validErr validator.ValidationErrors
		)
		switch {
		case errors.As(err, &validErr):
			resp = response.Failure(http.StatusBadRequest, svcErr.KindInvalidInput.Code(), "validation failed", validErr.Error())
		case errors.As(err, &httpErr):
			code, ok := httpErrorCodes[httpErr.Code]
			if !ok {
				code = "HTTP_ERROR"
			}
			resp = response.Failure(httpErr.Code, code, fmt.Sprint(httpErr.Message), "")
		default:
			d := svcErr.FromStatus(err)
			if d.Kind == svcErr.KindInternal {
				log, ok := logger.FromContext(c.Request().Context())
				if !ok {
					log = base
				}
				log.Error("unhandled error", "path", c.Path(), "err", err)
			}
			resp = response.Failure(svcErr.StatusForKind(d.Kind), d.Kind.Code(), d.Message, "")
			resp.NeedsCard = d.NeedsCard
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(resp.Code)
			return
		}
		_ = c.JSON(resp.Code, resp)
	}
}

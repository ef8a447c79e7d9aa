package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/icebucket/gologger"
	"github.com/danthegoodman1/icebucket/metastore"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/danthegoodman1/icebucket/verifier"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
	// Details carries the mismatches of a failed verification
	Details any `json:"details,omitempty"`
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// RunError maps the error kinds of a run to a status code. Anything it does
// not recognize is an internal error.
func (c *CustomContext) RunError(err error, msg string) error {
	var de *verifier.DistributionError
	var le *verifier.LayoutError
	switch {
	case utils.IsConfigError(err):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), RequestID: c.RequestID})
	case errors.Is(err, metastore.ErrTableNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error(), RequestID: c.RequestID})
	case errors.As(err, &de):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error(), RequestID: c.RequestID, Details: de})
	case errors.As(err, &le):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error(), RequestID: c.RequestID, Details: le})
	case errors.Is(err, verifier.ErrBadSample):
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: err.Error(), RequestID: c.RequestID})
	}
	return c.InternalError(err, msg)
}

package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danthegoodman1/icebucket/config"
	"github.com/danthegoodman1/icebucket/gologger"
	"github.com/danthegoodman1/icebucket/report"
	"github.com/danthegoodman1/icebucket/warehouse"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type HTTPServer struct {
	Echo *echo.Echo

	Warehouse warehouse.Collaborator
	// Defaults are used for every field a run request leaves out
	Defaults  config.RunConfig
	Publisher report.Publisher

	// runs on the same warehouse replace tables, so they go one at a time
	runMu sync.Mutex
}

type CustomValidator struct {
	validator *validator.Validate
}

// NewHTTPServer builds the router without listening.
func NewHTTPServer(wh warehouse.Collaborator, defaults config.RunConfig, pub report.Publisher) *HTTPServer {
	s := &HTTPServer{
		Echo:      echo.New(),
		Warehouse: wh,
		Defaults:  defaults,
		Publisher: pub,
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)

	s.Echo.POST("/runs", ccHandler(s.RunHandler))
	tablesGroup := s.Echo.Group("/tables")
	tablesGroup.GET("/:table/distribution", ccHandler(s.DistributionHandler))
	tablesGroup.GET("/:table/sample", ccHandler(s.SampleHandler))

	return s
}

// StartHTTPServer listens on port and serves h2c in the background.
func StartHTTPServer(port string, wh warehouse.Collaborator, defaults config.RunConfig, pub report.Publisher) (*HTTPServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return nil, fmt.Errorf("error creating tcp listener: %w", err)
	}
	s := NewHTTPServer(wh, defaults, pub)

	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("h2c server stopped")
		}
	}()

	return s, nil
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req received")
		return nil
	}
}

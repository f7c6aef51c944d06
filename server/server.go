// Package server 通过 HTTP 暴露排序、偏好与事件接口。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/matheusschuckar/look-pro/feedback"
)

// Server 持有 echo 实例与依赖。
type Server struct {
	echo       *echo.Echo
	sessions   *Sessions
	dispatcher *feedback.Dispatcher
	logger     zerolog.Logger
	timeout    time.Duration
}

// Config 是 Server 的依赖。
type Config struct {
	Sessions   *Sessions
	Dispatcher *feedback.Dispatcher
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
	Timeout    time.Duration
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

func New(cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		echo:       echo.New(),
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		timeout:    cfg.Timeout,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := s.logger.Debug()
			if v.Error != nil {
				ev = s.logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	api := e.Group("/v1")
	api.POST("/rank", s.rank)
	api.POST("/events", s.events)
	api.POST("/bump/:facet", s.bump)
	api.POST("/decay", s.decay)
	api.GET("/preferences", s.preferences)
	return s
}

// Echo 返回底层 echo 实例（测试与自定义路由）。
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start 监听 addr，直到 Shutdown 被调用。
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.WriteTimeout = writeTimeout
	s.logger.Info().Str("addr", addr).Msg("server starting")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭 HTTP 服务与事件队列。
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if s.dispatcher != nil {
		err = errors.Join(err, s.dispatcher.Close())
	}
	return err
}

// ResponseError 是错误响应体。
type ResponseError struct {
	Message string `json:"message"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()

	var he *echo.HTTPError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.As(err, &ve), isInputError(err):
		status = http.StatusBadRequest
	case errors.Is(err, feedback.ErrQueueFull), errors.Is(err, feedback.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
	}
	if err := c.JSON(status, ResponseError{Message: msg}); err != nil {
		s.logger.Warn().Err(err).Msg("error response not written")
	}
}

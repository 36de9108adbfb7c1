// internal/server/server.go
package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"time"

	"subscription-bot/internal/models"
	"subscription-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v72"
)

//go:embed templates/*.html
var templateFiles embed.FS

type UpdateDispatcher interface {
	Dispatch(ctx context.Context, update tgbotapi.Update) error
}

type WebhookVerifier interface {
	VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error)
}

type PaymentStore interface {
	UpsertPayment(ctx context.Context, payment *models.Payment) error
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Dispatcher UpdateDispatcher
	Verifier   WebhookVerifier
	Payments   PaymentStore
	Health     HealthChecker
}

type Server struct {
	echo   *echo.Echo
	addr   string
	deps   Dependencies
	logger *logger.Logger
}

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func NewServer(port string, deps Dependencies, log *logger.Logger) *Server {
	logger := log.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{
		templates: template.Must(template.ParseFS(templateFiles, "templates/*.html")),
	}

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Errorw("Request failed", append(fields, "error", v.Error)...)
				return nil
			}
			logger.Infow("Request handled", fields...)
			return nil
		},
	}))

	s := &Server{
		echo:   e,
		addr:   ":" + port,
		deps:   deps,
		logger: logger,
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/success_payment", s.handleSuccessPage)
	s.echo.GET("/cancel_payment", s.handleCancelPage)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/stripe-webhook", s.handleStripeWebhook)
	s.echo.POST("/telegram-webhook", s.handleTelegramWebhook)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.addr)
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.echo.Shutdown(ctx)
}

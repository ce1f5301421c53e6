package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"signal_bot/internal/models"
	alerts "signal_bot/internal/modules/alerts/service"
	"signal_bot/internal/runner"
	"signal_bot/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TokenHeader = "X-Webhook-Token"

	// confidence, если поле не пришло; явный 0 остаётся 0
	defaultWebhookConfidence = 70
)

type Ingestor interface {
	Ingest(ctx context.Context, in runner.Inbound) (models.Signal, error)
}

// WebhookRequest — тело POST /webhook.
type WebhookRequest struct {
	SignalID   string  `json:"signal_id" validate:"max=64"`
	Symbol     string  `json:"symbol" validate:"required,max=32"`
	Direction  string  `json:"direction" validate:"required"`
	Confidence *int    `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Analysis   string  `json:"analysis" validate:"max=512"`
	Timeframe  string  `json:"timeframe" default:"M1"`
	Price      float64 `json:"price"`
}

func (r WebhookRequest) confidence() int {
	if r.Confidence == nil {
		return defaultWebhookConfidence
	}
	return *r.Confidence
}

// signal — payload без symbol и direction просто подтверждается.
func (r WebhookRequest) signal() bool {
	return r.Symbol != "" || r.Direction != ""
}

type Handler struct {
	state    *State
	feed     *Feed
	ingestor Ingestor
	gatherer prometheus.Gatherer
	pending  func() int
	token    string
	name     string
}

type HandlerDeps struct {
	State    *State
	Feed     *Feed
	Ingestor Ingestor
	Gatherer prometheus.Gatherer
	Pending  func() int
	Token    string
	Name     string
}

func NewHandler(d HandlerDeps) *Handler {
	if d.Pending == nil {
		d.Pending = func() int { return 0 }
	}
	return &Handler{
		state:    d.State,
		feed:     d.Feed,
		ingestor: d.Ingestor,
		gatherer: d.Gatherer,
		pending:  d.Pending,
		token:    d.Token,
		name:     d.Name,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/livez", h.Livez)
	e.GET("/readyz", h.Readyz)
	e.GET("/healthz", h.Healthz)
	if h.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
	e.POST("/webhook", h.Webhook)
	if h.feed != nil {
		e.GET("/feed", h.feed.Serve)
	}
}

func (h *Handler) Root(c echo.Context) error {
	return c.String(http.StatusOK, h.name+" is running")
}

func (h *Handler) Livez(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *Handler) Readyz(c echo.Context) error {
	if !h.state.Ready() {
		return c.String(http.StatusServiceUnavailable, "not ready")
	}
	return c.String(http.StatusOK, "ready")
}

func (h *Handler) Healthz(c echo.Context) error {
	last, stage := h.state.LastMessage()
	var lastUnix int64
	if !last.IsZero() {
		lastUnix = last.Unix()
	}
	clients := 0
	if h.feed != nil {
		clients = h.feed.Clients()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ready":           h.state.Ready(),
		"uptimeSec":       int64(h.state.Uptime().Seconds()),
		"pendingAlerts":   h.pending(),
		"lastMessageUnix": lastUnix,
		"lastStage":       stage,
		"feedClients":     clients,
	})
}

func (h *Handler) Webhook(c echo.Context) error {
	if h.token != "" {
		got := c.Request().Header.Get(TokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"status": "unauthorized"})
		}
	}

	req := &WebhookRequest{}
	if verr := bindRequest(c, req); verr != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"status": "invalid", "errors": verr})
	}
	if !req.signal() {
		logger.Info("api: webhook without signal acknowledged")
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}
	if verr := validateRequest(c, req); verr != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"status": "invalid", "errors": verr})
	}

	sig, err := h.ingestor.Ingest(c.Request().Context(), runner.Inbound{
		SignalID:   req.SignalID,
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Confidence: req.confidence(),
		Analysis:   req.Analysis,
		Timeframe:  req.Timeframe,
		Price:      req.Price,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, map[string]string{"status": "scheduled", "signal_id": sig.ID})
	case errors.Is(err, runner.ErrInvalidSignal):
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "invalid", "error": err.Error()})
	case errors.Is(err, alerts.ErrDuplicate):
		return c.JSON(http.StatusConflict, map[string]string{"status": "duplicate", "signal_id": sig.ID})
	case errors.Is(err, alerts.ErrClosed):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
	default:
		logger.Error("api: webhook: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}
}

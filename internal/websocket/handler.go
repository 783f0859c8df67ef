package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
)

// HandlerOptions configures the live view upgrade
type HandlerOptions struct {
	// AllowedOrigins lists accepted Origin hosts; empty accepts any origin
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PongWait        time.Duration
	PingPeriod      time.Duration
}

// Handler upgrades live view requests for
// /ws/dashboards/{dashboard}/datasets/{id}
type Handler struct {
	hub          *Hub
	service      DatasetService
	upgrader     websocket.Upgrader
	opts         HandlerOptions
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewHandler creates the live view handler
func NewHandler(hub *Hub, service DatasetService, opts HandlerOptions, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	h := &Handler{
		hub:          hub,
		service:      service,
		opts:         opts,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "websocket.handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
		Error:           h.upgradeFailed,
	}
	return h
}

// upgradeFailed answers a rejected handshake with a problem document
func (h *Handler) upgradeFailed(w http.ResponseWriter, r *http.Request, status int, reason error) {
	h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(status,
		apierrors.ErrWebSocketUpgrade.ErrorCode,
		apierrors.ErrWebSocketUpgrade.Message,
		reason.Error()))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP checks the dataset exists, upgrades the connection and sends the
// default view
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dashboard")
	id := chi.URLParam(r, "id")

	if _, err := h.service.Summary(r.Context(), name, id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// answered by upgradeFailed
		return
	}

	path := r.URL.Path
	client := NewClient(h.hub, NewConnectionWrapper(conn), ClientConfig{
		Dashboard:  name,
		Dataset:    id,
		TraceID:    middleware.GetReqID(r.Context()),
		Renderer:   h.service,
		PongWait:   h.opts.PongWait,
		PingPeriod: h.opts.PingPeriod,
		Problem: func(err error) *apierrors.ProblemDetails {
			return h.errorHandler.ErrorToProblem(err, &http.Request{URL: &url.URL{Path: path}})
		},
	}, h.logger)

	client.sendMessage(Message{
		Type:      TypeConnected,
		ClientID:  client.ID(),
		Dashboard: name,
		Dataset:   id,
	})
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	client.Select(dashboard.Request{})
}

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nhsfuk/dharmic-games/realtime"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins. A "*" entry
// allows any origin.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// ServeWs upgrades the request and joins the client to the rooms listed in
// ?components=a,b. Without the parameter the client receives every update.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	rooms, err := parseComponents(r.URL.Query().Get("components"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("failed to upgrade websocket connection", slog.Any("error", err))
		return
	}
	h.hub.Attach(conn, rooms)
	h.logger.Debug("websocket client connected", slog.Any("components", rooms), slog.String("remote", r.RemoteAddr))
}

func parseComponents(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{realtime.Wildcard}, nil
	}
	var rooms []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(rooms, c) {
			continue
		}
		if !realtime.KnownComponent(c) {
			return nil, fmt.Errorf("unknown component %q", c)
		}
		rooms = append(rooms, c)
	}
	if len(rooms) == 0 {
		return []string{realtime.Wildcard}, nil
	}
	return rooms, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
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
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(strings.TrimRight(a, "/"), u.Scheme+"://"+u.Host)
		})
	}
}

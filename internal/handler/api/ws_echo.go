package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StreamEchoHandler mounts the frame WebSocket.
type StreamEchoHandler struct {
	path string
	hub  http.Handler
}

func NewStreamEchoHandler(path string, hub http.Handler) *StreamEchoHandler {
	if path == "" {
		path = "/ws"
	}
	return &StreamEchoHandler{path: path, hub: hub}
}

func (h *StreamEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET(h.path, echo.WrapHandler(h.hub))
}

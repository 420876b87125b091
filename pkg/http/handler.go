package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of routes on the shared echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Mount registers every non-nil handler on e.
func Mount(e *echo.Echo, handlers ...Handler) {
	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}

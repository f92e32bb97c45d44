package web

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/stitchweb/stitch/internal/present/web/middleware"
	"github.com/stitchweb/stitch/internal/present/web/presenter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Frame is one realtime push: replacement markup plus where and how
// the page should splice it in.
type Frame struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Swap   string `json:"swap"`
	Markup string `json:"markup"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	slug := c.Param("slug")
	if _, err := h.boards.Get(ctx, p, slug); err != nil {
		return presenter.Error(c, err)
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	events, err := h.signal.Subscribe(ctx, slug)
	if err != nil {
		slog.ErrorContext(
			ctx, "Failed to subscribe board events",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			// the read side only carries heartbeats; any error ends the session
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			markup, err := h.renderLists(c, slug)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error rendering board region",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				continue
			}

			err = ws.WriteJSON(Frame{
				Kind:   event.Kind,
				Target: "#lists",
				Swap:   "outerHTML",
				Markup: markup,
			})
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}

// renderLists renders the whole lists region from a fresh board load,
// through the fragment cache.
func (h *Handler) renderLists(c echo.Context, slug string) (string, error) {
	ctx := c.Request().Context()
	p := middleware.PrincipalFor(ctx)

	if markup, found := h.cache.Get(ctx, slug, "lists", ""); found {
		return markup, nil
	}

	board, err := h.boards.Get(ctx, p, slug)
	if err != nil {
		return "", err
	}

	markup, err := h.render.FragmentString("lists", newBoardPage(board, p, h.base(c, "").CSRF))
	if err != nil {
		return "", err
	}
	h.cache.Set(ctx, slug, "lists", "", markup)
	return markup, nil
}

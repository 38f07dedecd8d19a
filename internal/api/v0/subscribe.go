package v0

import (
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// subscribeAnnotations handles GET /annotations/subscribe
//
// It upgrades the connection to a websocket and writes one JSON event per
// annotation change until the client disconnects. The server never reads
// application frames from the client.
//
// @Summary		Subscribe to annotation changes
// @Description	Websocket stream of flag/notes change events
// @Tags			tracking
// @Success		101
// @Failure		503	{object}	ErrorResponse
// @Router			/annotations/subscribe [get]
func (rr *Routes) subscribeAnnotations(w http.ResponseWriter, r *http.Request) {
	if rr.hub == nil {
		rr.writeErrorResponse(w, "Annotation stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.DebugContext(r.Context(), "Websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	events, cancel := rr.hub.Subscribe()
	defer cancel()

	// CloseRead discards incoming frames and cancels the context once the
	// peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				slog.DebugContext(ctx, "Websocket write failed", "error", err)
				return
			}
		}
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const livePollInterval = 30 * time.Second

// LiveReport handles GET /api/v1/spots/{spot_id}/live. It upgrades to a
// WebSocket, sends the current report immediately, then pushes a new
// report whenever the cached one is replaced by a refresh. The reads it
// serves go through the normal cache layers, so a fleet of live clients
// costs no extra upstream calls.
func (h *Handlers) LiveReport(w http.ResponseWriter, r *http.Request) {
	spotID := r.PathValue("spot_id")
	if _, err := h.Service.Spot(spotID); err != nil {
		writeError(w, http.StatusNotFound, "unknown spot")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket accept failed", "spot_id", spotID, "error", err)
		return
	}
	defer conn.CloseNow()

	// We never expect client messages; CloseRead surfaces disconnects
	// through ctx.
	ctx := conn.CloseRead(r.Context())

	if err := h.pushLoop(ctx, conn, spotID); err != nil && !errors.Is(err, context.Canceled) {
		h.Logger.Debug("live stream ended", "spot_id", spotID, "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handlers) pushLoop(ctx context.Context, conn *websocket.Conn, spotID string) error {
	var lastSent time.Time

	send := func() error {
		rep, err := h.Service.Report(ctx, spotID, false)
		if err != nil {
			// Upstream trouble; keep the connection and retry on the
			// next tick.
			h.Logger.Warn("live refresh failed", "spot_id", spotID, "error", err)
			return nil
		}
		if rep.FetchedAt.Equal(lastSent) {
			return nil
		}
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := wsjson.Write(writeCtx, conn, rep); err != nil {
			return err
		}
		lastSent = rep.FetchedAt
		return nil
	}

	if err := send(); err != nil {
		return err
	}

	ticker := time.NewTicker(livePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

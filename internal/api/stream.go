package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// sseHandler streams one "request" event per completed capture.
func sseHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		// Subscribed before the headers go out so a client that has seen the
		// response cannot miss an event.
		id, ch := svc.Subscribe()
		defer svc.Unsubscribe(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case rec, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(rec)
				if err != nil {
					slog.Warn("SSE marshal failed", "request_id", rec.ID, "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: request\nid: %s\ndata: %s\n\n", rec.ID, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// wsHandler pushes each completed capture as a JSON text frame.
func wsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ch := svc.Subscribe()
		defer svc.Unsubscribe(id)

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				slog.Debug("WebSocket close failed", "error", err)
			}
		}()

		// Client frames are discarded; a read error means the peer went away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-gone:
				return
			case rec, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(rec)
				if err != nil {
					slog.Warn("WebSocket marshal failed", "request_id", rec.ID, "error", err)
					continue
				}
				if err := wsutil.WriteServerText(conn, data); err != nil {
					slog.Debug("WebSocket write failed", "error", err)
					return
				}
			}
		}
	}
}

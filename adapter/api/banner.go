package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
)

const (
	bannerWriteWait  = 5 * time.Second
	bannerPongWait   = 60 * time.Second
	bannerPingPeriod = bannerPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	// The stream is read-only; any origin may follow the countdown.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bannerFrame is one countdown update pushed to the client.
type bannerFrame struct {
	Monitor  monitor.Snapshot     `json:"monitor"`
	Checkout *settlement.Checkout `json:"checkout,omitempty"`
}

// handleBanner streams the countdown banner, one frame per monitor tick,
// with the open checkout attached so the modal can follow along.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	user := s.app.CurrentUser(r.Context())
	us, err := s.userSession(user)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("banner stream connected", "user_id", user.ID)

	snaps := make(chan monitor.Snapshot, 1)
	unwatch := us.Monitor.Watch(func(snap monitor.Snapshot) {
		// Keep only the newest snapshot when the client lags.
		select {
		case snaps <- snap:
		default:
			select {
			case <-snaps:
			default:
			}
			select {
			case snaps <- snap:
			default:
			}
		}
	})
	defer unwatch()

	// The reader only services control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(bannerPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(bannerPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(bannerPingPeriod)
	defer ping.Stop()

	send := func(snap monitor.Snapshot) error {
		frame := bannerFrame{Monitor: snap}
		if checkout, ok := us.Settlement.Current(); ok {
			frame.Checkout = &checkout
		}
		_ = conn.SetWriteDeadline(time.Now().Add(bannerWriteWait))
		return conn.WriteJSON(frame)
	}
	if err := send(us.Monitor.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(bannerWriteWait))
			return
		case <-closed:
			return
		case snap := <-snaps:
			if err := send(snap); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(bannerWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

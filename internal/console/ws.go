package console

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brainzmonster/os/internal/models"
)

const wsWriteTimeout = 5 * time.Second

type statusEnvelope struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Status      models.ConnectionStatus `json:"status"`
}

func (s *Server) wsUpgrader() websocket.Upgrader {
	allowed := strings.ToLower(strings.TrimSpace(s.opts.AllowedOrigin))
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			originHost := strings.ToLower(strings.TrimSpace(u.Host))
			if allowed != "" && originHost == allowed {
				return true
			}
			host := strings.ToLower(strings.TrimSpace(r.Host))
			return host == originHost
		},
	}
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	upgrader := s.wsUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStatusConnection(conn)
}

func (s *Server) serveStatusConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeStatusPayload(conn, s.buildStatusEnvelope()); err != nil {
		return
	}

	ticker := time.NewTicker(s.opts.PushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeStatusPayload(conn, s.buildStatusEnvelope()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) buildStatusEnvelope() statusEnvelope {
	return statusEnvelope{
		GeneratedAt: time.Now().UTC(),
		Status:      s.deps.Monitor.Snapshot(),
	}
}

func writeStatusPayload(conn *websocket.Conn, payload statusEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(payload)
}

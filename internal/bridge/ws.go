package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// WSServer serves the bridge's JSON-RPC protocol over a WebSocket, one
// connection per client, broadcasting event messages to every connected
// client as they occur (spec §4.5 "Transport: WebSocket").
type WSServer struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// NewWSServer builds a WSServer. Authentication lives entirely in the
// Dispatcher, which every request passes through regardless of
// transport, so WSServer itself carries no Authenticator.
func NewWSServer(dispatcher *Dispatcher, logger *slog.Logger) *WSServer {
	return &WSServer{
		dispatcher: dispatcher,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the http.HandlerFunc to mount at /ws. Per spec §4.5
// "Authentication", the token travels with each request's own `token`
// field rather than the handshake — the upgrade itself carries no auth
// check, so a connection with no valid per-message token simply gets an
// error response to every request it sends, same as HTTP.
func (s *WSServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error("bridge: websocket upgrade failed", "error", err)
			return
		}
		s.trackConn(conn)
		go s.serve(conn, r.RemoteAddr)
	}
}

func (s *WSServer) trackConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *WSServer) untrackConn(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *WSServer) serve(conn *websocket.Conn, remote string) {
	defer func() {
		s.untrackConn(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()
	defer close(done)

	var writeMu sync.Mutex
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req Message
		if err := json.Unmarshal(raw, &req); err != nil {
			resp := errorMessage(0, "InvalidMessage", err.Error())
			writeMu.Lock()
			conn.WriteJSON(resp)
			writeMu.Unlock()
			continue
		}

		resp := s.dispatcher.Dispatch(context.Background(), remote, req)
		writeMu.Lock()
		writeErr := conn.WriteJSON(resp)
		writeMu.Unlock()
		if writeErr != nil {
			return
		}
	}
}

// Broadcast sends an auxiliary event message — "progress", "log", or
// "status" — to every connected client, tagged with the originating
// request's id so the caller can correlate it with the command still in
// flight (spec §4.5 "Events"). The final result/error always arrives
// after any events for the same id, though no ordering between events
// themselves is guaranteed.
func (s *WSServer) Broadcast(id uint32, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := Message{ID: id, Event: event, Data: raw}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		_ = conn.WriteJSON(msg)
	}
}

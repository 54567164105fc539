package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Manager owns the bridge's listener lifecycle: starting the WS and HTTP
// servers, and rebinding them when the active profile switches or the
// bridge settings change, with retry-with-backoff if a port is briefly
// held by the previous instance during a restart (spec §4.5 "Lifecycle").
type Manager struct {
	logger *slog.Logger

	mu         sync.Mutex
	wsServer   *http.Server
	httpServer *http.Server
	running    bool
}

// NewManager builds a Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Config carries everything the manager needs to (re)bind.
type Config struct {
	WSAddr     string
	HTTPAddr   string
	Dispatcher *Dispatcher
	Authz      *Authorizer
	Auth       *Authenticator
	Registry   *Registry
}

// Start binds both listeners. If Authz reports the bridge disabled,
// Start is a no-op.
func (m *Manager) Start(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.Authz.BridgeDisabled() {
		m.logger.Info("bridge disabled by settings, not starting listeners")
		return nil
	}
	if m.running {
		return nil
	}

	ws := NewWSServer(cfg.Dispatcher, m.logger)
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", ws.Handler())
	wsMux.HandleFunc("/health", m.handleHealth)

	wsListener, err := bindWithRetry(cfg.WSAddr, 50, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("bridge: bind ws listener: %w", err)
	}
	m.wsServer = &http.Server{Handler: wsMux, ReadTimeout: 10 * time.Second}
	go func() {
		if err := m.wsServer.Serve(wsListener); err != nil && err != http.ErrServerClosed {
			m.logger.Error("bridge ws server error", "error", err)
		}
	}()

	httpSrv := NewHTTPServer(cfg.Dispatcher, cfg.Auth, cfg.Registry)
	httpListener, err := bindWithRetry(cfg.HTTPAddr, 50, 200*time.Millisecond)
	if err != nil {
		m.wsServer.Close()
		return fmt.Errorf("bridge: bind http listener: %w", err)
	}
	m.httpServer = &http.Server{Handler: httpSrv.Mux(), ReadTimeout: 10 * time.Second}
	go func() {
		if err := m.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed {
			m.logger.Error("bridge http server error", "error", err)
		}
	}()

	m.running = true
	m.logger.Info("bridge listeners started", "ws", cfg.WSAddr, "http", cfg.HTTPAddr)
	return nil
}

// Stop closes both listeners, if running.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	var firstErr error
	if m.wsServer != nil {
		if err := m.wsServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.httpServer != nil {
		if err := m.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.running = false
	return firstErr
}

// Rebind stops the current listeners (if any) and starts again with cfg;
// called on a profile switch or a bridge-settings change.
func (m *Manager) Rebind(ctx context.Context, cfg Config) error {
	if err := m.Stop(ctx); err != nil {
		m.logger.Warn("bridge: error stopping listeners before rebind", "error", err)
	}
	return m.Start(ctx, cfg)
}

func (m *Manager) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ready"}`))
}

// bindWithRetry retries net.Listen a few times with a fixed backoff, to
// ride out the brief window where a just-stopped previous instance still
// holds the port in TIME_WAIT.
func bindWithRetry(addr string, attempts int, backoff time.Duration) (net.Listener, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		l, err := net.Listen("tcp", addr)
		if err == nil {
			return l, nil
		}
		lastErr = err
		time.Sleep(backoff)
	}
	return nil, lastErr
}

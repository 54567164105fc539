package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/biovault-desktop/internal/bverrors"
)

// Handler implements one RPC method's logic: decode params, do the work,
// return a result to be marshaled back to the caller.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// registeredCommand pairs a handler with its published catalogue flags.
type registeredCommand struct {
	handler Handler
	flags   CommandFlags
}

// Registry holds every bridge command the daemon exposes.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]registeredCommand
}

// NewRegistry builds an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]registeredCommand)}
}

// Register adds a command under name with the given flags.
func (r *Registry) Register(name string, flags CommandFlags, handler Handler) {
	flags.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = registeredCommand{handler: handler, flags: flags}
}

// Catalogue returns every registered command's published flags, used by
// GET /commands.
func (r *Registry) Catalogue() []CommandFlags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CommandFlags, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c.flags)
	}
	return out
}

func (r *Registry) lookup(method string) (registeredCommand, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[method]
	return c, ok
}

// Dispatcher executes requests against a Registry, enforcing
// authentication and authorization and recording audit entries around
// every call (spec §4.5 "Authentication", "Authorization", "Audit").
type Dispatcher struct {
	registry *Registry
	authz    *Authorizer
	auth     *Authenticator
	audit    *AuditLog
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(registry *Registry, authz *Authorizer, auth *Authenticator, audit *AuditLog, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, authz: authz, auth: auth, audit: audit, logger: logger}
}

// Dispatch executes one request and returns the response Message to send
// back on whichever transport received it. Authentication is checked
// per request — every request must carry a valid token, regardless of
// transport or connection history (spec §4.5 "Authentication").
func (d *Dispatcher) Dispatch(ctx context.Context, caller string, req Message) Message {
	start := time.Now()

	if d.auth != nil && d.auth.Enabled() && !d.auth.Verify(req.Token) {
		detail := "Authentication failed: invalid token"
		if req.Token == "" {
			detail = "Authentication failed: missing token"
		}
		d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), false, detail, caller)
		return errorMessage(req.ID, bverrors.KindAuth, detail)
	}

	if !d.authz.Allowed(req.Cmd) {
		d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), false, "blocked by authorization policy", caller)
		return errorMessage(req.ID, bverrors.KindAuth, "command is not permitted")
	}

	cmd, ok := d.registry.lookup(req.Cmd)
	if !ok {
		d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), false, "unknown command", caller)
		return errorMessage(req.ID, bverrors.KindValidation, "unknown command: "+req.Cmd)
	}

	result, err := cmd.handler(ctx, req.Args)
	if err != nil {
		d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), false, err.Error(), caller)
		return errorMessage(req.ID, bverrors.KindOf(err), err.Error())
	}

	raw, err := json.Marshal(result)
	if err != nil {
		d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), false, "failed to marshal result", caller)
		return errorMessage(req.ID, bverrors.KindIO, "failed to marshal result")
	}

	d.recordAudit(req.ID, req.Cmd, len(req.Args), time.Since(start), true, "", caller)
	return Message{ID: req.ID, Result: raw}
}

func (d *Dispatcher) recordAudit(id uint32, command string, argBytes int, duration time.Duration, success bool, detail, peer string) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Record(id, command, argBytes, duration, success, detail, peer); err != nil && d.logger != nil {
		d.logger.Warn("failed to write bridge audit entry", "error", err)
	}
}

func errorMessage(id uint32, kind bverrors.Kind, message string) Message {
	return Message{
		ID:    id,
		Error: &ErrorPayload{Kind: string(kind), Message: message},
	}
}

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, token string) (*Dispatcher, *AuditLog, string) {
	t.Helper()
	home := t.TempDir()

	reg := NewRegistry()
	reg.Register("echo", CommandFlags{ReadOnly: true}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var in struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		return map[string]string{"msg": in.Msg}, nil
	})
	reg.Register("boom", CommandFlags{}, func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, assert.AnError
	})

	authz := NewAuthorizer(false, []string{"blocked_cmd"})
	auth := NewAuthenticator(token)
	audit, err := NewAuditLog(home)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDispatcher(reg, authz, auth, audit, logger), audit, home
}

func readAuditEntries(t *testing.T, home string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(home, "logs", "agent_bridge_audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestDispatch_MissingToken(t *testing.T) {
	d, _, home := newTestDispatcher(t, "s3cret")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 1, Cmd: "echo", Args: json.RawMessage(`{}`)})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Authentication failed: missing token", resp.Error.Message)
	assert.Equal(t, uint32(1), resp.ID)

	entries := readAuditEntries(t, home)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, uint32(1), entries[0].ID)
	assert.Equal(t, "echo", entries[0].Command)
}

func TestDispatch_InvalidToken(t *testing.T) {
	d, _, _ := newTestDispatcher(t, "s3cret")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 2, Cmd: "echo", Token: "wrong"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Authentication failed: invalid token", resp.Error.Message)
}

func TestDispatch_BlockedCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t, "")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 3, Cmd: "blocked_cmd"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Auth", resp.Error.Kind)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t, "")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 4, Cmd: "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Validation", resp.Error.Kind)
}

func TestDispatch_HandlerError(t *testing.T) {
	d, _, home := newTestDispatcher(t, "")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 5, Cmd: "boom"})
	require.NotNil(t, resp.Error)

	entries := readAuditEntries(t, home)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].Error)
}

func TestDispatch_Success(t *testing.T) {
	d, _, home := newTestDispatcher(t, "s3cret")

	args := json.RawMessage(`{"msg":"hi"}`)
	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 6, Cmd: "echo", Token: "s3cret", Args: args})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	assert.Equal(t, uint32(6), resp.ID)

	var out struct {
		Msg string `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	assert.Equal(t, "hi", out.Msg)

	entries := readAuditEntries(t, home)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, len(args), entries[0].ArgBytes)
}

func TestDispatch_AuthDisabledAllowsNoToken(t *testing.T) {
	d, _, _ := newTestDispatcher(t, "")

	resp := d.Dispatch(context.Background(), "127.0.0.1", Message{ID: 7, Cmd: "echo", Args: json.RawMessage(`{"msg":"ok"}`)})
	assert.Nil(t, resp.Error)
}

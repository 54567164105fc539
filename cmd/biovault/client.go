package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func daemonHTTPAddr() string {
	if v := os.Getenv("BIOVAULT_BRIDGE_HTTP_ADDR"); v != "" {
		return v
	}
	return "http://127.0.0.1:3334"
}

// callBridge issues one command-bridge request to the daemon's HTTP
// transport and decodes the raw result payload into out (spec §4.5,
// "Command-bridge request" wire format: {id, cmd, args, token?}).
func callBridge(cmd string, args any, out any) error {
	argsRaw, err := json.Marshal(args)
	if err != nil {
		return err
	}

	reqBody := map[string]any{
		"id":   rand.Uint32(),
		"cmd":  cmd,
		"args": json.RawMessage(argsRaw),
	}
	if token := os.Getenv("AGENT_BRIDGE_TOKEN"); token != "" {
		reqBody["token"] = token
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodPost, daemonHTTPAddr()+"/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("AGENT_BRIDGE_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling biovaultd at %s: %w (is the daemon running?)", daemonHTTPAddr(), err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Error  *struct{ Kind, Message string } `json:"error"`
		Result json.RawMessage                 `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %s", envelope.Error.Kind, envelope.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

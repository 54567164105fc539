package bridge

import (
	"encoding/json"
	"net/http"
)

// HTTPServer serves the bridge's JSON-RPC protocol as a plain request/
// response fallback for clients that can't hold a WebSocket open
// (spec §4.5 "Transport: HTTP").
type HTTPServer struct {
	dispatcher *Dispatcher
	auth       *Authenticator
	registry   *Registry
}

// NewHTTPServer builds an HTTPServer.
func NewHTTPServer(dispatcher *Dispatcher, auth *Authenticator, registry *Registry) *HTTPServer {
	return &HTTPServer{dispatcher: dispatcher, auth: auth, registry: registry}
}

// Mux builds the HTTP handler covering POST /rpc, GET /commands, and
// GET /schema.
func (s *HTTPServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/commands", s.handleCommands)
	mux.HandleFunc("/schema", s.handleSchema)
	return mux
}

func (s *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Message
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" {
		req.Token = ExtractBearerToken(r)
	}

	resp := s.dispatcher.Dispatch(r.Context(), r.RemoteAddr, req)
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != nil {
		w.WriteHeader(http.StatusBadRequest)
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *HTTPServer) handleCommands(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil && s.auth.Enabled() && !s.auth.AuthenticateHTTP(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.registry.Catalogue())
}

// schemaDocument is the static description GET /schema returns: the wire
// envelope shape plus every registered command's flags, so a caller can
// discover the full command surface without issuing requests against it
// (spec §4.5 "GET /schema").
type schemaDocument struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Request         map[string]any `json:"request"`
	Response        map[string]any `json:"response"`
	Commands        []CommandFlags `json:"commands"`
}

func (s *HTTPServer) handleSchema(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil && s.auth.Enabled() && !s.auth.AuthenticateHTTP(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	doc := schemaDocument{
		ProtocolVersion: ProtocolVersion,
		Request: map[string]any{
			"id":    "u32",
			"cmd":   "string",
			"args":  "object",
			"token": "string, optional",
		},
		Response: map[string]any{
			"id":     "u32",
			"result": "object, present on success",
			"error":  "object{kind, message}, present on failure",
		},
		Commands: s.registry.Catalogue(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

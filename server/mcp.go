package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amotivv/youtube-tools-llm-context/router"
	"github.com/google/uuid"
)

// rpcRequest is the envelope the MCP HTTP endpoints accept.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// rpcError is the error member of a response envelope.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   ServerName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache_dir": s.cache.Dir(),
	})
}

func (s *Server) handleMCPHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"protocol":  "mcp",
		"version":   "1.0",
		"server":    ServerName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRPC(w, r)
	if !ok {
		return
	}

	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		Result: map[string]any{
			"protocolVersion": "1.0",
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": ServerVersion,
			},
			"capabilities": map[string]any{
				"tools":     true,
				"resources": true,
				"prompts":   true,
			},
			"sessionId": uuid.NewString(),
		},
		ID: req.ID,
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRPC(w, r)
	if !ok {
		return
	}

	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		Result: map[string]any{
			"tools": router.ToolDescriptors(),
		},
		ID: req.ID,
	})
}

// handleCallTool executes a tool and returns its payload as text content,
// matching the stdio transport's result shape. Tool failures still produce
// a 200 envelope; the failure is data in the payload.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRPC(w, r)
	if !ok {
		return
	}

	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeRPC(w, rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: -32602, Message: "Invalid params", Data: err.Error()},
				ID:      req.ID,
			})
			return
		}
	}

	result := s.router.CallTool(r.Context(), params.Name, params.Arguments)
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32603, Message: "Internal error", Data: err.Error()},
			ID:      req.ID,
		})
		return
	}

	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		Result: map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": string(text)},
			},
		},
		ID: req.ID,
	})
}

func decodeRPC(w http.ResponseWriter, r *http.Request) (*rpcRequest, bool) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "Parse error", Data: err.Error()},
			ID:      json.RawMessage("1"),
		})
		return nil, false
	}
	if len(req.ID) == 0 {
		req.ID = json.RawMessage("1")
	}
	return &req, true
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

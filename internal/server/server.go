package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/ironsheep/image-threshold/internal/config"
	"github.com/ironsheep/image-threshold/internal/imaging"
)

// ServerName is reported in the initialize handshake.
const ServerName = "image-threshold"

// Server answers MCP requests with thresholding tools. Decoded sources
// are cached per path and gray conversion for the life of the server.
type Server struct {
	cache   *imaging.ImageCache
	cfg     *config.Config
	version string
}

// MCPRequest is one JSON-RPC 2.0 message from the client. Notifications
// carry no ID.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse carries either Result or Error, never both.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError is the error member of a response.
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance. Tool arguments that are omitted
// fall back to cfg; a nil cfg selects the built-in defaults.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		cache:   imaging.NewImageCache(),
		cfg:     cfg,
		version: "dev",
	}
}

// WithVersion sets the version reported to clients.
func (s *Server) WithVersion(v string) *Server {
	if v != "" {
		s.version = v
	}
	return s
}

// Serve reads one JSON-RPC request per line from r and writes responses
// to w until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	in := bufio.NewScanner(r)
	// tool calls are small, but allow up to 1 MiB per message
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	out := json.NewEncoder(w)

	for in.Scan() {
		msg := in.Bytes()
		if len(msg) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Printf("dropping malformed request: %v", err)
			continue
		}
		if s.cfg.Debug() {
			log.Printf("request: method=%s id=%v", req.Method, req.ID)
		}

		// notifications get no reply
		if resp := s.handleRequest(&req); resp != nil {
			if err := out.Encode(resp); err != nil {
				log.Printf("failed to write response to %s: %v", req.Method, err)
			}
		}
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// handleRequest dispatches on the method name.
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize advertises the tools capability and the build version.
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": s.version,
			},
		},
	}
}

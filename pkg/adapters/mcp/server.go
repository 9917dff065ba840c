package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/internal/presentation/graph"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/aretw0/lander/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FunnelsURI is the resource listing the available funnels.
const FunnelsURI = "lander://funnels"

// FunnelInfo is one entry of the funnels resource.
type FunnelInfo struct {
	ID          string   `json:"id" jsonschema_description:"Funnel identifier used by start_session"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Questions   []string `json:"questions" jsonschema_description:"Answer keys recorded by the funnel, in order"`
}

// FunnelList wraps the funnels so the structured output is an object.
type FunnelList struct {
	Funnels []FunnelInfo `json:"funnels"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*options)

type options struct {
	version string
	logger  *slog.Logger
}

// WithVersion sets the version advertised during initialization.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithLogger configures the Server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	o := options{version: "dev", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		sessions:  sessions,
		logger:    o.logger,
		mcpServer: server.NewMCPServer("lander-mcp", strings.TrimSpace(o.version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_funnels",
		mcp.WithDescription("List the funnel scripts a session can be started from."),
		mcp.WithOutputSchema[FunnelList](),
	), mcp.NewStructuredToolHandler(s.handleListFunnels))

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new funnel session. Assistant messages appear over time; poll get_session to see them."),
		mcp.WithString("funnel_id", mcp.Required(), mcp.Description("Funnel to run (see list_funnels)")),
		mcp.WithString("phone", mcp.Description("Contact number override (optional)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("submit_answer",
		mcp.WithDescription("Answer the current question step. Only accepted while the session shows a question."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by start_session")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Answer text. An option number selects that option.")),
		mcp.WithString("key", mcp.Description("Answer key (optional, defaults to the step key)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleSubmitAnswer))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current snapshot of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("End a session and release its timers."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleEndSession)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a Mermaid flowchart of a funnel for introspection."),
		mcp.WithString("funnel_id", mcp.Required(), mcp.Description("Funnel ID")),
	), s.handleGetGraph)
}

// Handler methods for structured tools

func (s *Server) handleListFunnels(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FunnelList, error) {
	funnels, err := s.funnels()
	if err != nil {
		return FunnelList{}, err
	}
	return FunnelList{Funnels: funnels}, nil
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Snapshot, error) {
	funnelID, _ := args["funnel_id"].(string)
	phone, _ := args["phone"].(string)

	rn, err := s.sessions.Start(ctx, funnelID, strings.TrimSpace(phone))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("start failed: %w", err)
	}
	return rn.Snapshot(), nil
}

func (s *Server) handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Snapshot, error) {
	sessionID, _ := args["session_id"].(string)
	key, _ := args["key"].(string)
	value, _ := args["value"].(string)

	rn, err := s.sessions.Get(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}

	clean, err := runner.SanitizeAnswer(value)
	if err != nil {
		s.logger.Warn("MCP SubmitAnswer: Input rejected", "error", err, "size", len(value))
		return domain.Snapshot{}, fmt.Errorf("input rejected: %w", err)
	}
	clean = runner.NormalizeChoice(clean, rn.Snapshot().Options)

	snap, err := rn.Submit(ctx, strings.TrimSpace(key), clean)
	if err != nil {
		if errors.Is(err, domain.ErrNotInteractive) {
			return domain.Snapshot{}, fmt.Errorf("%w: session is on a %s step", err, rn.Snapshot().Kind)
		}
		return domain.Snapshot{}, fmt.Errorf("submit failed: %w", err)
	}
	return snap, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Snapshot, error) {
	sessionID, _ := args["session_id"].(string)
	rn, err := s.sessions.Get(sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rn.Snapshot(), nil
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	if err := s.sessions.End(sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("session %s ended", sessionID)), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	script, err := s.sessions.Loader().Load(request.GetString("funnel_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(script, nil)), nil
}

func (s *Server) funnels() ([]FunnelInfo, error) {
	loader := s.sessions.Loader()
	ids, err := loader.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	out := make([]FunnelInfo, 0, len(ids))
	for _, id := range ids {
		script, err := loader.Load(id)
		if err != nil {
			return nil, err
		}
		info := FunnelInfo{ID: script.ID, Title: script.Title, Description: script.Description, Questions: []string{}}
		for _, st := range script.Steps {
			if st.Kind == domain.StepQuestion {
				info.Questions = append(info.Questions, st.Key)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Server) registerResources() {
	// EXPOSE: lander://funnels
	s.mcpServer.AddResource(mcp.NewResource(FunnelsURI, "Available Funnels",
		mcp.WithMIMEType("application/json"),
	), s.readFunnels)
}

func (s *Server) readFunnels(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	funnels, err := s.funnels()
	if err != nil {
		return nil, err
	}
	jsonBytes, _ := json.Marshal(funnels)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FunnelsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

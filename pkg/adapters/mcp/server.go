// Package mcp exposes conversations as Model Context Protocol tools, so an
// agent can drive the assistant the same way a chat host does.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/chefmate/internal/logging"
	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/domain"
	"github.com/aretw0/chefmate/pkg/intent"
	"github.com/aretw0/chefmate/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI is the resource listing the recipes of the local catalog.
const CatalogURI = "chefmate://catalog"

// TurnResponse is the structured result of every conversation tool.
type TurnResponse struct {
	SessionID string              `json:"session_id" jsonschema_description:"The conversation the turn ran in"`
	Outcome   domain.TurnOutcome  `json:"outcome,omitempty" jsonschema_description:"How the turn settled"`
	Events    []domain.Event      `json:"events" jsonschema_description:"What the host should render, in order"`
	State     domain.SessionState `json:"state" jsonschema_description:"The conversation state after the turn"`
}

// Server exposes a session registry as an MCP server.
type Server struct {
	sessions   *session.Manager
	classifier *intent.Classifier
	catalog    *catalog.Catalog
	logger     *slog.Logger
	version    string
	mcpServer  *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithCatalog exposes the catalog as a resource.
func WithCatalog(c *catalog.Catalog) Option { return func(s *Server) { s.catalog = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:   sessions,
		classifier: intent.New(),
		logger:     logging.NewNop(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("chefmate-mcp", s.version)
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutdown signal received, stopping MCP server")
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

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new cooking conversation and return its welcome message."),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send one user utterance (ingredients, a recipe choice, a modification or a question) to a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID from start_session")),
		mcp.WithString("text", mcp.Required(), mcp.Description("What the user said")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("select_recipe",
		mcp.WithDescription("Open a recipe of the current result list by its 1-based position."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithNumber("ordinal", mcp.Required(), mcp.Description("1-based position in the result list")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleSelect))

	s.mcpServer.AddTool(mcp.NewTool("modify_recipe",
		mcp.WithDescription("Transform the recipe currently shown."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithString("modification", mcp.Required(),
			mcp.Enum(string(domain.ModSpicy), string(domain.ModVegan), string(domain.ModQuick)),
			mcp.Description("Which transformation to apply")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleModify))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Clear the conversation and start over."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current state of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation ID")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("classify",
		mcp.WithDescription("Classify an utterance without executing it. With session_id the conversation state is taken into account."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The utterance")),
		mcp.WithString("session_id", mcp.Description("Conversation ID (optional)")),
	), s.handleClassify)
}

func (s *Server) open(ctx context.Context, args map[string]interface{}) (*dialogue.Controller, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return nil, errors.New("session_id is required")
	}
	return s.sessions.Open(ctx, id)
}

func respond(ctrl *dialogue.Controller, res *dialogue.TurnResult, err error) (TurnResponse, error) {
	if err != nil {
		return TurnResponse{}, err
	}
	return TurnResponse{
		SessionID: ctrl.SessionID(),
		Outcome:   res.Outcome,
		Events:    res.Events,
		State:     res.State,
	}, nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.sessions.Create(ctx)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start session: %w", err)
	}
	welcome := ctrl.Greet(ctx)
	return TurnResponse{
		SessionID: ctrl.SessionID(),
		Events:    []domain.Event{welcome},
		State:     *ctrl.Snapshot(),
	}, nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.open(ctx, args)
	if err != nil {
		return TurnResponse{}, err
	}
	text, _ := args["text"].(string)
	res, err := ctrl.HandleInput(ctx, text)
	if err != nil {
		s.logger.Warn("MCP send_message: Input rejected", "session_id", ctrl.SessionID(), "err", err, "size", len(text))
	}
	return respond(ctrl, res, err)
}

func (s *Server) handleSelect(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.open(ctx, args)
	if err != nil {
		return TurnResponse{}, err
	}
	ordinal, ok := args["ordinal"].(float64)
	if !ok || ordinal != float64(int(ordinal)) {
		return TurnResponse{}, fmt.Errorf("%w: ordinal must be an integer", domain.ErrInvalidOrdinal)
	}
	res, err := ctrl.Select(ctx, int(ordinal))
	return respond(ctrl, res, err)
}

func (s *Server) handleModify(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.open(ctx, args)
	if err != nil {
		return TurnResponse{}, err
	}
	raw, _ := args["modification"].(string)
	m, err := domain.ParseModification(raw)
	if err != nil {
		return TurnResponse{}, err
	}
	res, err := ctrl.Modify(ctx, m)
	return respond(ctrl, res, err)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.open(ctx, args)
	if err != nil {
		return TurnResponse{}, err
	}
	res, err := ctrl.Reset(ctx)
	return respond(ctrl, res, err)
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	ctrl, err := s.open(ctx, args)
	if err != nil {
		return TurnResponse{}, err
	}
	return TurnResponse{SessionID: ctrl.SessionID(), Events: []domain.Event{}, State: *ctrl.Snapshot()}, nil
}

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, _ := args["text"].(string)

	state := domain.NewSessionState()
	if id, _ := args["session_id"].(string); id != "" {
		ctrl, err := s.sessions.Open(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("open session: %v", err)), nil
		}
		state = ctrl.Snapshot()
	}

	in := s.classifier.Classify(text, state)
	jsonBytes, _ := json.Marshal(in)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	if s.catalog == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Recipe Catalog",
		mcp.WithResourceDescription("All recipes of the local catalog"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.catalog.Recipes())
		if err != nil {
			return nil, fmt.Errorf("encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

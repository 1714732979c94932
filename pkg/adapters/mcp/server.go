// Package mcp exposes undo sessions and stored histories as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	undolog "github.com/Hopsan/hopsan-sub008"
	"github.com/Hopsan/hopsan-sub008/internal/logging"
	"github.com/Hopsan/hopsan-sub008/internal/presentation/graph"
	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/Hopsan/hopsan-sub008/pkg/session"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

const historiesURI = "undolog://histories"

// SessionView is the live state of an open undo stack, shared by every session tool.
type SessionView struct {
	DocumentID string       `json:"document_id" jsonschema_description:"The document the stack belongs to"`
	Position   int          `json:"position" jsonschema_description:"Number of the last applied post, -1 when nothing is applied"`
	CanUndo    bool         `json:"can_undo"`
	CanRedo    bool         `json:"can_redo"`
	Entries    []undo.Entry `json:"entries" jsonschema_description:"Every post, oldest first"`
}

// HistoryList names stored histories and the sessions open in this process.
type HistoryList struct {
	Histories []string `json:"histories"`
	Open      []string `json:"open"`
}

type documentArgs struct {
	DocumentID string `json:"document_id"`
}

// Server wraps a session manager and exposes it as an MCP server.
type Server struct {
	sessions    *session.Manager
	newDocument func(documentID string) ports.Document
	logger      *slog.Logger
	mcpServer   *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for tool calls and transport errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDocumentFactory sets how open_session obtains the document it binds the stack to.
// The default is an empty in-memory document.
func WithDocumentFactory(fn func(documentID string) ports.Document) Option {
	return func(s *Server) {
		s.newDocument = fn
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		newDocument: func(string) ports.Document {
			return memory.NewDocument()
		},
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("undolog-mcp", strings.TrimSpace(undolog.Version), server.WithRecovery()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves JSON-RPC on in and out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	documentID := mcp.WithString("document_id", mcp.Required(), mcp.Description("ID of the model document"))

	s.mcpServer.AddTool(mcp.NewTool("list_histories",
		mcp.WithDescription("List stored undo histories and the documents with an open session."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[HistoryList](),
	), mcp.NewStructuredToolHandler(s.handleListHistories))

	s.mcpServer.AddTool(mcp.NewTool("inspect_history",
		mcp.WithDescription("Show the stored undo history of a document."),
		documentID,
		mcp.WithString("format",
			mcp.Description("summary (JSON) or mermaid"),
			mcp.Enum("summary", "mermaid"),
			mcp.DefaultString("summary"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleInspectHistory)

	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a document and restore its stored undo history."),
		documentID,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last applied step of an open document."),
		documentID,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.stepHandler((*undo.Stack).Undo)))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the next undone step of an open document."),
		documentID,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.stepHandler((*undo.Stack).Redo)))

	s.mcpServer.AddTool(mcp.NewTool("save_session",
		mcp.WithDescription("Persist the undo history of an open document."),
		documentID,
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSave))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Save and close an open document."),
		documentID,
		mcp.WithDestructiveHintAnnotation(false),
	), s.handleClose)
}

func (s *Server) handleListHistories(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (HistoryList, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return HistoryList{}, fmt.Errorf("list failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return HistoryList{Histories: ids, Open: s.sessions.OpenIDs()}, nil
}

func (s *Server) handleInspectHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := session.ValidateDocumentID(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h, err := s.sessions.Store().Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("inspect failed", err), nil
	}
	summary := h.Summary()
	if request.GetString("format", "summary") == "mermaid" {
		return mcp.NewToolResultText(graph.GenerateMermaid(summary)), nil
	}
	return mcp.NewToolResultStructuredOnly(summary), nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args documentArgs) (SessionView, error) {
	if _, err := s.sessions.Open(ctx, args.DocumentID, s.newDocument(args.DocumentID)); err != nil {
		return SessionView{}, err
	}
	view, err := s.view(ctx, args.DocumentID, nil)
	if err == nil {
		s.logger.Info("MCP session opened", "document_id", args.DocumentID, "position", view.Position)
	}
	return view, err
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest, args documentArgs) (SessionView, error) {
	if err := s.sessions.Save(ctx, args.DocumentID); err != nil {
		return SessionView{}, err
	}
	return s.view(ctx, args.DocumentID, nil)
}

func (s *Server) handleClose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Close(ctx, id); err != nil {
		return mcp.NewToolResultErrorFromErr("close failed", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("closed %s", id)), nil
}

func (s *Server) stepHandler(step func(*undo.Stack) error) mcp.StructuredToolHandlerFunc[documentArgs, SessionView] {
	return func(ctx context.Context, request mcp.CallToolRequest, args documentArgs) (SessionView, error) {
		view, err := s.view(ctx, args.DocumentID, step)
		if errors.Is(err, domain.ErrMissingReference) {
			s.logger.Warn("MCP replay diverged from the document", "tool", request.Params.Name, "document_id", args.DocumentID, "err", err)
		}
		return view, err
	}
}

// view runs step, if set, under the session lock and returns the resulting state.
func (s *Server) view(ctx context.Context, documentID string, step func(*undo.Stack) error) (SessionView, error) {
	if err := session.ValidateDocumentID(documentID); err != nil {
		return SessionView{}, err
	}
	var view SessionView
	err := s.sessions.Do(ctx, documentID, func(sess *session.Session) error {
		if step != nil {
			if err := step(sess.Stack); err != nil {
				return err
			}
		}
		view = SessionView{
			DocumentID: sess.ID,
			Position:   sess.Stack.Position(),
			CanUndo:    sess.Stack.CanUndo(),
			CanRedo:    sess.Stack.CanRedo(),
			Entries:    sess.Stack.Entries(),
		}
		return nil
	})
	return view, err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(historiesURI, "Stored undo histories",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.handleListHistories(ctx, mcp.CallToolRequest{}, struct{}{})
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(list)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      historiesURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/observability"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/Hopsan/hopsan-sub008/pkg/session"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

func setup(t *testing.T) (*session.Manager, http.Handler) {
	t.Helper()
	ctx := context.Background()
	manager := session.NewManager(memory.NewStore())

	doc := memory.NewDocument()
	sess, err := manager.Open(ctx, "models/pump.hmf", doc)
	require.NoError(t, err)

	sess.Stack.BeginTransaction("Add pump")
	snap, err := doc.AddEntity(memory.Entity{Name: "Pump1", Type: "HydraulicPump"})
	require.NoError(t, err)
	sess.Stack.RegisterAddedEntity("Pump1", snap)
	require.NoError(t, manager.Save(ctx, "models/pump.hmf"))

	return manager, NewHandler(manager, WithVersion("1.2.3"))
}

// serve returns a handler whose stacks report to a fresh metrics registry.
func serve(t *testing.T) (*session.Manager, http.Handler) {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	manager := session.NewManager(memory.NewStore(),
		session.WithStackOptions(undo.WithLifecycleHooks(metrics.Hooks())),
	)
	return manager, NewHandler(manager, WithMetrics(registry))
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, h, "GET", "/info")
	assert.Contains(t, w.Body.String(), "1.2.3")
}

func TestListHistories(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/histories")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []string{"models/pump.hmf"}, body["histories"])
}

func TestGetHistory(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/histories/models%2Fpump.hmf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary domain.HistorySummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "models/pump.hmf", summary.DocumentID)
	assert.Equal(t, 0, summary.Position)
	require.Len(t, summary.Posts, 1)
	assert.Equal(t, "Add pump", summary.Posts[0].Label)
	assert.Equal(t, []string{string(undo.KindAddedEntity)}, summary.Posts[0].Kinds)
}

func TestGetHistory_NotFound(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/histories/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "history not found")
}

func TestGetSession(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/sessions/models%2Fpump.hmf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view SessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.True(t, view.CanUndo)
	assert.False(t, view.CanRedo)
	require.Len(t, view.Entries, 1)
	assert.True(t, view.Entries[0].Applied)

	w = do(t, h, "GET", "/sessions/other")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/sessions")
	assert.Contains(t, w.Body.String(), "models/pump.hmf")
}

func TestDeleteHistory(t *testing.T) {
	manager, h := setup(t)

	w := do(t, h, "DELETE", "/histories/models%2Fpump.hmf")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, open := manager.Get("models/pump.hmf")
	assert.False(t, open, "delete drops the open session")

	w = do(t, h, "GET", "/histories/models%2Fpump.hmf")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	doc := memory.NewDocument()
	stack := undo.NewStack(doc, undo.WithLifecycleHooks(metrics.Hooks()))
	snap, err := doc.AddEntity(memory.Entity{Name: "Tank"})
	require.NoError(t, err)
	stack.RegisterAddedEntity("Tank", snap)
	require.NoError(t, stack.Undo())

	h := NewHandler(session.NewManager(memory.NewStore()), WithMetrics(registry))
	w := do(t, h, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `undolog_replays_total{direction="undo"} 1`), w.Body.String())

	w = do(t, NewHandler(session.NewManager(memory.NewStore())), "GET", "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidDocumentID(t *testing.T) {
	_, h := setup(t)

	w := do(t, h, "GET", "/histories/bad%1Bid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid document id")
}

func TestSessionLifecycle(t *testing.T) {
	manager, h := serve(t)
	ctx := context.Background()

	w := do(t, h, "POST", "/sessions/models%2Fvalve.hmf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view SessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "models/valve.hmf", view.DocumentID)
	assert.Equal(t, -1, view.Position)

	require.NoError(t, manager.Do(ctx, "models/valve.hmf", func(sess *session.Session) error {
		doc := sess.Document.(*memory.Document)
		sess.Stack.BeginTransaction("Add valve")
		snap, err := doc.AddEntity(memory.Entity{Name: "Valve1", Type: "Hydraulic43Valve"})
		if err != nil {
			return err
		}
		sess.Stack.RegisterAddedEntity("Valve1", snap)
		return nil
	}))

	w = do(t, h, "POST", "/sessions/models%2Fvalve.hmf/undo")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, -1, view.Position)
	assert.True(t, view.CanRedo)

	w = do(t, h, "POST", "/sessions/models%2Fvalve.hmf/redo")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 0, view.Position)
	assert.False(t, view.CanRedo)

	w = do(t, h, "POST", "/sessions/models%2Fvalve.hmf/save")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/histories/models%2Fvalve.hmf")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `undolog_replays_total{direction="undo"} 1`)
	assert.Contains(t, body, `undolog_replays_total{direction="redo"} 1`)

	w = do(t, h, "DELETE", "/sessions/models%2Fvalve.hmf")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "POST", "/sessions/models%2Fvalve.hmf/undo")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionUndo_MissingReferenceClearsHistory(t *testing.T) {
	manager, h := serve(t)
	ctx := context.Background()

	// The stored step refers to an entity the freshly opened document does not have.
	entry, err := undo.EncodeRecord(&undo.Moved{Name: "Ghost", NewPosition: domain.Position{X: 5}})
	require.NoError(t, err)
	h0 := domain.NewHistory("ghost.hmf")
	h0.Posts = append(h0.Posts, domain.PostEntry{Number: 0, Records: []domain.RecordEntry{entry}})
	require.NoError(t, manager.Store().Save(ctx, "ghost.hmf", h0))

	w := do(t, h, "POST", "/sessions/ghost.hmf")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, "POST", "/sessions/ghost.hmf/undo")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "missing reference")

	w = do(t, h, "GET", "/sessions/ghost.hmf")
	require.Equal(t, http.StatusOK, w.Code)
	var view SessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, -1, view.Position)
	assert.Empty(t, view.Entries)

	w = do(t, h, "GET", "/metrics")
	assert.Contains(t, w.Body.String(), `undolog_invalidations_total{reason="divergence"} 1`)
}

func TestOpenSession_DocumentFactory(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	var asked []string
	h := NewHandler(manager, WithDocumentFactory(func(id string) ports.Document {
		asked = append(asked, id)
		return memory.NewDocument()
	}))

	w := do(t, h, "POST", "/sessions/a.hmf")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "OPTIONS", "/sessions/a.hmf")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	w = do(t, h, "POST", "/sessions/bad%1Bid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"a.hmf"}, asked)
}

package undo_test

import (
	"testing"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
	"github.com/stretchr/testify/require"
)

// editor performs document edits and registers them the way a canvas would.
type editor struct {
	t     *testing.T
	doc   *memory.Document
	stack *undo.Stack
}

func newEditor(t *testing.T, opts ...undo.Option) *editor {
	t.Helper()
	doc := memory.NewDocument()
	return &editor{t: t, doc: doc, stack: undo.NewStack(doc, opts...)}
}

func (e *editor) add(name string, pos domain.Position) {
	e.t.Helper()
	snap, err := e.doc.AddEntity(memory.Entity{Name: name, Type: "HydraulicPump", Position: pos, NameVisible: true})
	require.NoError(e.t, err)
	e.stack.RegisterAddedEntity(name, snap)
}

func (e *editor) connect(from, to string, points ...domain.Position) domain.ConnectorRef {
	e.t.Helper()
	ref := domain.ConnectorRef{
		Start: domain.Endpoint{Entity: from, Port: "P1"},
		End:   domain.Endpoint{Entity: to, Port: "P2"},
	}
	snap, err := e.doc.AddConnector(memory.Connector{Ref: ref, Points: points})
	require.NoError(e.t, err)
	e.stack.RegisterAddedConnector(ref, snap)
	return ref
}

func (e *editor) move(name string, to domain.Position) {
	e.t.Helper()
	ent, ok := e.doc.Entity(name)
	require.True(e.t, ok)
	require.NoError(e.t, e.doc.SetPosition(name, to))
	e.stack.RegisterMove(name, ent.Position, to)
}

func (e *editor) rename(oldName, newName string) {
	e.t.Helper()
	require.NoError(e.t, e.doc.RenameEntity(oldName, newName))
	e.stack.RegisterRename(oldName, newName)
}

func (e *editor) disconnect(ref domain.ConnectorRef) {
	e.t.Helper()
	snap, err := e.doc.ConnectorSnapshot(ref)
	require.NoError(e.t, err)
	require.NoError(e.t, e.doc.DeleteConnector(ref))
	e.stack.RegisterDeletedConnector(ref, snap)
}

func (e *editor) remove(name string) {
	e.t.Helper()
	snap, err := e.doc.EntitySnapshot(name)
	require.NoError(e.t, err)
	require.NoError(e.t, e.doc.DeleteEntity(name))
	e.stack.RegisterDeletedEntity(name, snap)
}

func (e *editor) position(name string) domain.Position {
	e.t.Helper()
	ent, ok := e.doc.Entity(name)
	require.True(e.t, ok, "entity %s should exist", name)
	return ent.Position
}

func (e *editor) points(ref domain.ConnectorRef) []domain.Position {
	e.t.Helper()
	c, ok := e.doc.Connector(ref)
	require.True(e.t, ok, "connector %s should exist", ref)
	return c.Points
}

func pos(x, y float64) domain.Position {
	return domain.Position{X: x, Y: y}
}

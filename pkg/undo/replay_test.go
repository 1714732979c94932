package undo_test

import (
	"errors"
	"testing"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_CreateMoveRename(t *testing.T) {
	e := newEditor(t)

	e.stack.BeginTransaction("")
	e.add("Pump1", pos(0, 0))
	e.stack.BeginTransaction("")
	e.move("Pump1", pos(100, 100))
	e.stack.BeginTransaction("")
	e.rename("Pump1", "MainPump")

	require.NoError(t, e.stack.Undo())
	assert.True(t, e.doc.EntityExists("Pump1"))
	assert.False(t, e.doc.EntityExists("MainPump"))
	assert.Equal(t, pos(100, 100), e.position("Pump1"))
	assert.Equal(t, 1, e.stack.Position())

	require.NoError(t, e.stack.Undo())
	assert.Equal(t, pos(0, 0), e.position("Pump1"))
	assert.Equal(t, 0, e.stack.Position())

	require.NoError(t, e.stack.Undo())
	assert.False(t, e.doc.EntityExists("Pump1"))
	assert.Equal(t, -1, e.stack.Position())

	for i := 0; i < 3; i++ {
		require.NoError(t, e.stack.Redo())
	}
	assert.True(t, e.doc.EntityExists("MainPump"))
	assert.False(t, e.doc.EntityExists("Pump1"))
	assert.Equal(t, pos(100, 100), e.position("MainPump"))
	assert.Equal(t, 2, e.stack.Position())
}

func TestReplay_PostIsAtomic(t *testing.T) {
	e := newEditor(t)

	e.stack.BeginTransaction("Paste")
	e.add("A", pos(0, 0))
	e.add("B", pos(100, 0))
	ref := e.connect("A", "B", pos(50, 0))
	e.stack.RegisterChangedParameter("A", "p", "1", "1")

	require.NoError(t, e.stack.Undo())
	assert.Empty(t, e.doc.Entities())
	assert.Empty(t, e.doc.Connectors())

	require.NoError(t, e.stack.Redo())
	assert.Equal(t, []string{"A", "B"}, e.doc.Entities())
	assert.True(t, e.doc.ConnectorExists(ref))
	assert.Equal(t, []domain.Position{pos(50, 0)}, e.points(ref))
}

func TestReplay_DependencyOrdering(t *testing.T) {
	tests := []struct {
		name        string
		entityFirst bool
	}{
		{name: "connector registered first", entityFirst: false},
		{name: "entity registered first", entityFirst: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEditor(t)
			e.stack.BeginTransaction("")
			e.add("A", pos(0, 0))
			e.add("B", pos(100, 0))
			ref := e.connect("A", "B", pos(50, 0), pos(50, 20))

			e.stack.BeginTransaction("Delete")
			if tt.entityFirst {
				connSnap, err := e.doc.ConnectorSnapshot(ref)
				require.NoError(t, err)
				e.remove("A") // cascades the connector
				e.stack.RegisterDeletedConnector(ref, connSnap)
			} else {
				e.disconnect(ref)
				e.remove("A")
			}
			require.False(t, e.doc.ConnectorExists(ref))

			require.NoError(t, e.stack.Undo())
			assert.True(t, e.doc.EntityExists("A"))
			assert.True(t, e.doc.ConnectorExists(ref))
			assert.Equal(t, []domain.Position{pos(50, 0), pos(50, 20)}, e.points(ref))

			require.NoError(t, e.stack.Redo())
			assert.False(t, e.doc.EntityExists("A"))
			assert.False(t, e.doc.ConnectorExists(ref))
			assert.Equal(t, 1, e.stack.Position())
		})
	}
}

func TestReplay_ConnectorFollowsMovedEntities(t *testing.T) {
	setup := func(t *testing.T) (*editor, domain.ConnectorRef) {
		e := newEditor(t)
		e.stack.BeginTransaction("")
		e.add("A", pos(0, 0))
		e.add("B", pos(100, 0))
		ref := e.connect("A", "B", pos(50, 0), pos(50, 50))

		// Moving a selection drags the connector's routing points with it.
		e.stack.BeginTransaction("Move")
		e.move("A", pos(10, 20))
		e.move("B", pos(110, 20))
		require.NoError(t, e.doc.ShiftConnectorPoints(ref, 10, 20))
		return e, ref
	}
	original := []domain.Position{pos(50, 0), pos(50, 50)}
	shifted := []domain.Position{pos(60, 20), pos(60, 70)}

	t.Run("derived shift", func(t *testing.T) {
		e, ref := setup(t)

		require.NoError(t, e.stack.Undo())
		assert.Equal(t, original, e.points(ref))
		assert.Equal(t, pos(0, 0), e.position("A"))

		require.NoError(t, e.stack.Redo())
		assert.Equal(t, shifted, e.points(ref))
	})

	t.Run("explicit shift is not applied twice", func(t *testing.T) {
		e, ref := setup(t)
		e.stack.RegisterConnectorShift(ref, 10, 20)

		require.NoError(t, e.stack.Undo())
		assert.Equal(t, original, e.points(ref))

		require.NoError(t, e.stack.Redo())
		assert.Equal(t, shifted, e.points(ref))
	})

	t.Run("one moved endpoint leaves points alone", func(t *testing.T) {
		e := newEditor(t)
		e.stack.BeginTransaction("")
		e.add("A", pos(0, 0))
		e.add("B", pos(100, 0))
		ref := e.connect("A", "B", pos(50, 0))
		e.stack.BeginTransaction("")
		e.move("A", pos(10, 20))

		require.NoError(t, e.stack.Undo())
		assert.Equal(t, []domain.Position{pos(50, 0)}, e.points(ref))
	})
}

func TestReplay_SegmentDrag(t *testing.T) {
	e := newEditor(t)
	e.stack.BeginTransaction("")
	e.add("A", pos(0, 0))
	e.add("B", pos(100, 0))
	ref := e.connect("A", "B", pos(50, 0), pos(50, 50))

	e.stack.BeginTransaction("")
	require.NoError(t, e.doc.SetConnectorSegmentPosition(ref, 1, pos(70, 50)))
	e.stack.RegisterModifiedConnector(ref, 1, pos(50, 50), pos(70, 50))

	require.NoError(t, e.stack.Undo())
	assert.Equal(t, pos(50, 50), e.points(ref)[1])
	require.NoError(t, e.stack.Redo())
	assert.Equal(t, pos(70, 50), e.points(ref)[1])
}

func TestReplay_ValueChanges(t *testing.T) {
	e := newEditor(t)
	e.stack.BeginTransaction("")
	e.add("A", pos(0, 0))

	e.stack.BeginTransaction("Edit")
	require.NoError(t, e.doc.Rotate("A", 90))
	e.stack.RegisterRotate("A", 90)
	require.NoError(t, e.doc.FlipHorizontal("A"))
	e.stack.RegisterHorizontalFlip("A")
	require.NoError(t, e.doc.FlipVertical("A"))
	e.stack.RegisterVerticalFlip("A")
	require.NoError(t, e.doc.SetParameter("A", "displacement", "2e-5"))
	e.stack.RegisterChangedParameter("A", "displacement", "1e-5", "2e-5")
	require.NoError(t, e.doc.SetNameVisible("A", false))
	e.stack.RegisterNameVisibilityChange("A", true)
	require.NoError(t, e.doc.SetAlwaysVisible("A", true))
	e.stack.RegisterAlwaysVisibleChange("A", false)
	oldTime := e.doc.SimulationTime()
	newTime := domain.SimulationTime{Start: 0, Step: 0.01, Stop: 20}
	require.NoError(t, e.doc.SetSimulationTime(newTime.Start, newTime.Step, newTime.Stop))
	e.stack.RegisterSimulationTimeChange(oldTime, newTime)

	edited, _ := e.doc.Entity("A")

	require.NoError(t, e.stack.Undo())
	got, _ := e.doc.Entity("A")
	assert.Equal(t, 0.0, got.Angle)
	assert.False(t, got.FlippedH)
	assert.False(t, got.FlippedV)
	assert.Equal(t, "1e-5", got.Parameters["displacement"])
	assert.True(t, got.NameVisible)
	assert.False(t, got.AlwaysVisible)
	assert.Equal(t, oldTime, e.doc.SimulationTime())

	require.NoError(t, e.stack.Redo())
	got, _ = e.doc.Entity("A")
	assert.Equal(t, edited, got)
	assert.Equal(t, newTime, e.doc.SimulationTime())
}

func TestReplay_Widgets(t *testing.T) {
	e := newEditor(t)

	e.stack.BeginTransaction("")
	snap, err := e.doc.AddWidget(0, memory.Widget{Kind: "text", Position: pos(0, 0), Size: domain.Size{Width: 10, Height: 5}, Content: "hello"})
	require.NoError(t, err)
	e.stack.RegisterAddedWidget(0, snap)

	e.stack.BeginTransaction("")
	require.NoError(t, e.doc.SetWidgetPosition(0, pos(5, 5)))
	e.stack.RegisterMovedWidget(0, pos(0, 0), pos(5, 5))

	e.stack.BeginTransaction("")
	require.NoError(t, e.doc.SetWidgetSize(0, domain.Size{Width: 20, Height: 10}))
	require.NoError(t, e.doc.SetWidgetPosition(0, pos(0, 0)))
	e.stack.RegisterResizedWidget(0, domain.Size{Width: 10, Height: 5}, pos(5, 5), domain.Size{Width: 20, Height: 10}, pos(0, 0))

	e.stack.BeginTransaction("")
	require.NoError(t, e.doc.ReplaceWidgetContent(0, "world"))
	e.stack.RegisterModifiedWidget(0, "hello")

	require.NoError(t, e.stack.Undo())
	w, _ := e.doc.Widget(0)
	assert.Equal(t, "hello", w.Content)

	require.NoError(t, e.stack.Undo())
	w, _ = e.doc.Widget(0)
	assert.Equal(t, domain.Size{Width: 10, Height: 5}, w.Size)
	assert.Equal(t, pos(5, 5), w.Position)

	require.NoError(t, e.stack.Redo())
	require.NoError(t, e.stack.Redo())
	w, _ = e.doc.Widget(0)
	assert.Equal(t, "world", w.Content)
	assert.Equal(t, domain.Size{Width: 20, Height: 10}, w.Size)

	// The content swap keeps working across repeated cycles.
	require.NoError(t, e.stack.Undo())
	require.NoError(t, e.stack.Redo())
	w, _ = e.doc.Widget(0)
	assert.Equal(t, "world", w.Content)

	for e.stack.CanUndo() {
		require.NoError(t, e.stack.Undo())
	}
	assert.False(t, e.doc.WidgetExists(0))
}

func TestReplay_DeletedWidget(t *testing.T) {
	e := newEditor(t)
	e.stack.BeginTransaction("")
	snap, err := e.doc.AddWidget(3, memory.Widget{Kind: "image", Content: "logo.png"})
	require.NoError(t, err)
	e.stack.RegisterAddedWidget(3, snap)

	e.stack.BeginTransaction("")
	require.NoError(t, e.doc.DeleteWidget(3))
	e.stack.RegisterDeletedWidget(3, snap)

	require.NoError(t, e.stack.Undo())
	w, ok := e.doc.Widget(3)
	require.True(t, ok)
	assert.Equal(t, "logo.png", w.Content)

	require.NoError(t, e.stack.Redo())
	assert.False(t, e.doc.WidgetExists(3))
}

func TestReplay_RemovedAliases(t *testing.T) {
	e := newEditor(t)
	e.stack.BeginTransaction("")
	e.add("A", pos(0, 0))
	require.NoError(t, e.doc.SetAlias("flow", "A.P1.q"))

	e.stack.BeginTransaction("Delete")
	e.doc.RemoveAlias("flow")
	e.stack.RegisterRemovedAliases([]domain.Alias{{Alias: "flow", FullName: "A.P1.q"}})
	e.remove("A")

	require.NoError(t, e.stack.Undo())
	full, ok := e.doc.Alias("flow")
	require.True(t, ok)
	assert.Equal(t, "A.P1.q", full)
	assert.True(t, e.doc.EntityExists("A"))

	require.NoError(t, e.stack.Redo())
	assert.False(t, e.doc.EntityExists("A"))
}

func TestReplay_MissingReferenceClearsHistory(t *testing.T) {
	var messages []string
	e := newEditor(t, undo.WithMessageHandler(ports.MessageHandlerFunc(func(text string) {
		messages = append(messages, text)
	})))

	e.stack.BeginTransaction("")
	e.add("A", pos(0, 0))
	e.stack.BeginTransaction("")
	e.rename("A", "B")

	// The document changes behind the log's back.
	require.NoError(t, e.doc.DeleteEntity("B"))

	err := e.stack.Undo()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingReference))

	var missing *domain.MissingReferenceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, domain.RefEntity, missing.Kind)
	assert.Equal(t, "B", missing.Key)

	assert.Equal(t, -1, e.stack.Position())
	assert.Equal(t, 0, e.stack.Len())
	assert.False(t, e.stack.CanUndo())
	assert.False(t, e.stack.CanRedo())
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "undo")
	assert.True(t, e.stack.Enabled())
}

func TestReplay_MissingReferenceOnRedo(t *testing.T) {
	var messages []string
	e := newEditor(t, undo.WithMessageHandler(ports.MessageHandlerFunc(func(text string) {
		messages = append(messages, text)
	})))

	e.stack.BeginTransaction("")
	e.add("A", pos(0, 0))
	e.add("B", pos(100, 0))
	e.stack.BeginTransaction("")
	ref := e.connect("A", "B")

	require.NoError(t, e.stack.Undo())
	require.NoError(t, e.doc.DeleteEntity("B"))

	err := e.stack.Redo()
	require.ErrorIs(t, err, domain.ErrMissingReference)
	assert.False(t, e.doc.ConnectorExists(ref))
	assert.Equal(t, 0, e.stack.Len())
	assert.Len(t, messages, 1)
}

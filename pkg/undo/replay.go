package undo

import (
	"fmt"
	"log/slog"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/ports"
)

// replayer applies one post against a document. A fresh replayer is used per call.
type replayer struct {
	doc    ports.Document
	logger *slog.Logger

	// moved holds the displacement applied to each entity during this replay.
	moved map[string]domain.Position
	// shifted marks connectors that carried an explicit shift record.
	shifted map[domain.ConnectorRef]bool
}

func newReplayer(doc ports.Document, logger *slog.Logger) *replayer {
	return &replayer{
		doc:     doc,
		logger:  logger,
		moved:   make(map[string]domain.Position),
		shifted: make(map[domain.ConnectorRef]bool),
	}
}

func (r *replayer) requireEntity(name string, op Kind) error {
	if !r.doc.EntityExists(name) {
		return &domain.MissingReferenceError{Kind: domain.RefEntity, Key: name, Op: string(op)}
	}
	return nil
}

func (r *replayer) requireConnector(ref domain.ConnectorRef, op Kind) error {
	if !r.doc.ConnectorExists(ref) {
		return &domain.MissingReferenceError{Kind: domain.RefConnector, Key: ref.String(), Op: string(op)}
	}
	return nil
}

// requireEndpoints checks that both entities a connector attaches to exist.
func (r *replayer) requireEndpoints(ref domain.ConnectorRef, op Kind) error {
	if err := r.requireEntity(ref.Start.Entity, op); err != nil {
		return err
	}
	return r.requireEntity(ref.End.Entity, op)
}

func (r *replayer) requireWidget(index int, op Kind) error {
	if !r.doc.WidgetExists(index) {
		return &domain.MissingReferenceError{Kind: domain.RefWidget, Key: fmt.Sprint(index), Op: string(op)}
	}
	return nil
}

// undo reverts post in dependency order: non-structural changes newest first, then
// deleted entities and widgets come back, then deleted connectors, then added connectors
// go, then added entities and widgets go, then derived connector shifts.
func (r *replayer) undo(post *Post) error {
	recs := post.Records

	for i := len(recs) - 1; i >= 0; i-- {
		if structural(recs[i]) {
			continue
		}
		if err := r.revert(recs[i]); err != nil {
			return err
		}
	}

	for i := len(recs) - 1; i >= 0; i-- {
		switch rec := recs[i].(type) {
		case *DeletedEntity:
			if err := r.createEntity(rec.Name, rec.Snapshot, rec.Kind()); err != nil {
				return err
			}
		case *DeletedWidget:
			if err := r.doc.CreateWidget(rec.Snapshot, rec.Index); err != nil {
				return fmt.Errorf("recreate widget %d: %w", rec.Index, err)
			}
		}
	}

	for i := len(recs) - 1; i >= 0; i-- {
		if rec, ok := recs[i].(*DeletedConnector); ok {
			if err := r.createConnector(rec.Connector, rec.Snapshot, rec.Kind()); err != nil {
				return err
			}
		}
	}

	for i := len(recs) - 1; i >= 0; i-- {
		if rec, ok := recs[i].(*AddedConnector); ok {
			if err := r.deleteConnector(rec.Connector, rec.Kind()); err != nil {
				return err
			}
		}
	}

	for i := len(recs) - 1; i >= 0; i-- {
		switch rec := recs[i].(type) {
		case *AddedEntity:
			if err := r.deleteEntity(rec.Name, rec.Kind()); err != nil {
				return err
			}
		case *AddedWidget:
			if err := r.deleteWidget(rec.Index, rec.Kind()); err != nil {
				return err
			}
		}
	}

	return r.shiftConnectors()
}

// redo reapplies post in registration order: entities and widgets are added, then
// connectors, then non-structural changes, then connectors and entities are removed.
func (r *replayer) redo(post *Post) error {
	recs := post.Records

	for _, rec := range recs {
		switch rec := rec.(type) {
		case *AddedEntity:
			if err := r.createEntity(rec.Name, rec.Snapshot, rec.Kind()); err != nil {
				return err
			}
		case *AddedWidget:
			if err := r.doc.CreateWidget(rec.Snapshot, rec.Index); err != nil {
				return fmt.Errorf("recreate widget %d: %w", rec.Index, err)
			}
		}
	}

	for _, rec := range recs {
		if rec, ok := rec.(*AddedConnector); ok {
			if err := r.createConnector(rec.Connector, rec.Snapshot, rec.Kind()); err != nil {
				return err
			}
		}
	}

	for _, rec := range recs {
		if structural(rec) {
			continue
		}
		if err := r.apply(rec); err != nil {
			return err
		}
	}
	if err := r.shiftConnectors(); err != nil {
		return err
	}

	for _, rec := range recs {
		if rec, ok := rec.(*DeletedConnector); ok {
			if err := r.deleteConnector(rec.Connector, rec.Kind()); err != nil {
				return err
			}
		}
	}

	for _, rec := range recs {
		switch rec := rec.(type) {
		case *DeletedEntity:
			if err := r.deleteEntity(rec.Name, rec.Kind()); err != nil {
				return err
			}
		case *DeletedWidget:
			if err := r.deleteWidget(rec.Index, rec.Kind()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *replayer) createEntity(name string, snapshot domain.Snapshot, op Kind) error {
	got, err := r.doc.CreateEntity(snapshot)
	if err != nil {
		return fmt.Errorf("recreate entity %q: %w", name, err)
	}
	if got != name {
		r.logger.Warn("recreated entity under a different name", "want", name, "got", got, "op", op)
	}
	return nil
}

func (r *replayer) deleteEntity(name string, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	if err := r.doc.DeleteEntity(name); err != nil {
		return fmt.Errorf("delete entity %q: %w", name, err)
	}
	return nil
}

func (r *replayer) createConnector(ref domain.ConnectorRef, snapshot domain.Snapshot, op Kind) error {
	if err := r.requireEndpoints(ref, op); err != nil {
		return err
	}
	if err := r.doc.CreateConnector(snapshot); err != nil {
		return fmt.Errorf("recreate connector %s: %w", ref, err)
	}
	// A recreated connector already carries its routing points.
	r.shifted[ref] = true
	return nil
}

func (r *replayer) deleteConnector(ref domain.ConnectorRef, op Kind) error {
	if err := r.requireConnector(ref, op); err != nil {
		return err
	}
	if err := r.doc.DeleteConnector(ref); err != nil {
		return fmt.Errorf("delete connector %s: %w", ref, err)
	}
	return nil
}

func (r *replayer) deleteWidget(index int, op Kind) error {
	if err := r.requireWidget(index, op); err != nil {
		return err
	}
	if err := r.doc.DeleteWidget(index); err != nil {
		return fmt.Errorf("delete widget %d: %w", index, err)
	}
	return nil
}

// revert applies the backward direction of a non-structural record.
func (r *replayer) revert(rec Record) error {
	switch rec := rec.(type) {
	case *Renamed:
		return r.rename(rec.NewName, rec.OldName, rec.Kind())
	case *Moved:
		return r.move(rec.Name, rec.NewPosition, rec.OldPosition, rec.Kind())
	case *Rotated:
		return r.rotate(rec.Name, -rec.Angle, rec.Kind())
	case *ConnectorBulkShift:
		return r.shift(rec.Connector, -rec.DX, -rec.DY, rec.Kind())
	case *ModifiedConnectorSegment:
		return r.segment(rec.Connector, rec.Segment, rec.OldPosition, rec.Kind())
	case *ParameterChanged:
		return r.parameter(rec.Name, rec.Parameter, rec.OldValue, rec.Kind())
	case *MovedWidget:
		return r.moveWidget(rec.Index, rec.OldPosition, rec.Kind())
	case *ResizedWidget:
		return r.resizeWidget(rec.Index, rec.OldSize, rec.OldPosition, rec.Kind())
	case *SimulationTimeChanged:
		return r.simulationTime(rec.Old)
	case *NameVisibilityChanged:
		return r.nameVisible(rec.Name, rec.Previous, rec.Kind())
	case *AlwaysVisibleChanged:
		return r.alwaysVisible(rec.Name, rec.Previous, rec.Kind())
	case *Unknown:
		return nil
	case *RemovedAliases:
		for _, a := range rec.Aliases {
			if err := r.doc.SetAlias(a.Alias, a.FullName); err != nil {
				return fmt.Errorf("restore alias %q: %w", a.Alias, err)
			}
		}
		return nil
	default:
		return r.toggle(rec)
	}
}

// apply applies the forward direction of a non-structural record.
func (r *replayer) apply(rec Record) error {
	switch rec := rec.(type) {
	case *Renamed:
		return r.rename(rec.OldName, rec.NewName, rec.Kind())
	case *Moved:
		return r.move(rec.Name, rec.OldPosition, rec.NewPosition, rec.Kind())
	case *Rotated:
		return r.rotate(rec.Name, rec.Angle, rec.Kind())
	case *ConnectorBulkShift:
		return r.shift(rec.Connector, rec.DX, rec.DY, rec.Kind())
	case *ModifiedConnectorSegment:
		return r.segment(rec.Connector, rec.Segment, rec.NewPosition, rec.Kind())
	case *ParameterChanged:
		return r.parameter(rec.Name, rec.Parameter, rec.NewValue, rec.Kind())
	case *MovedWidget:
		return r.moveWidget(rec.Index, rec.NewPosition, rec.Kind())
	case *ResizedWidget:
		return r.resizeWidget(rec.Index, rec.NewSize, rec.NewPosition, rec.Kind())
	case *SimulationTimeChanged:
		return r.simulationTime(rec.New)
	case *NameVisibilityChanged:
		return r.nameVisible(rec.Name, !rec.Previous, rec.Kind())
	case *AlwaysVisibleChanged:
		return r.alwaysVisible(rec.Name, !rec.Previous, rec.Kind())
	case *Unknown:
		return nil
	case *RemovedAliases:
		// The aliases went away with their components, which the same post deletes again.
		r.logger.Debug("nothing to redo for removed aliases", "count", len(rec.Aliases))
		return nil
	default:
		return r.toggle(rec)
	}
}

// toggle handles the records that are their own inverse.
func (r *replayer) toggle(rec Record) error {
	switch rec := rec.(type) {
	case *FlippedHorizontal:
		if err := r.requireEntity(rec.Name, rec.Kind()); err != nil {
			return err
		}
		return r.doc.FlipHorizontal(rec.Name)
	case *FlippedVertical:
		if err := r.requireEntity(rec.Name, rec.Kind()); err != nil {
			return err
		}
		return r.doc.FlipVertical(rec.Name)
	case *ModifiedWidget:
		return r.swapWidget(rec)
	default:
		return fmt.Errorf("%w: cannot replay %s", domain.ErrCorruptHistory, rec.Kind())
	}
}

func (r *replayer) rename(from, to string, op Kind) error {
	if err := r.requireEntity(from, op); err != nil {
		return err
	}
	if err := r.doc.RenameEntity(from, to); err != nil {
		return fmt.Errorf("rename %q to %q: %w", from, to, err)
	}
	if d, ok := r.moved[from]; ok {
		delete(r.moved, from)
		r.moved[to] = d
	}
	return nil
}

func (r *replayer) move(name string, from, to domain.Position, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	if err := r.doc.SetPosition(name, to); err != nil {
		return fmt.Errorf("move %q: %w", name, err)
	}
	r.moved[name] = r.moved[name].Add(to.Sub(from))
	return nil
}

func (r *replayer) rotate(name string, angle float64, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	return r.doc.Rotate(name, angle)
}

func (r *replayer) shift(ref domain.ConnectorRef, dx, dy float64, op Kind) error {
	if err := r.requireConnector(ref, op); err != nil {
		return err
	}
	r.shifted[ref] = true
	return r.doc.ShiftConnectorPoints(ref, dx, dy)
}

func (r *replayer) segment(ref domain.ConnectorRef, segment int, pos domain.Position, op Kind) error {
	if err := r.requireConnector(ref, op); err != nil {
		return err
	}
	return r.doc.SetConnectorSegmentPosition(ref, segment, pos)
}

func (r *replayer) parameter(name, parameter, value string, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	if err := r.doc.SetParameter(name, parameter, value); err != nil {
		return fmt.Errorf("set %s.%s: %w", name, parameter, err)
	}
	return nil
}

func (r *replayer) nameVisible(name string, visible bool, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	return r.doc.SetNameVisible(name, visible)
}

func (r *replayer) alwaysVisible(name string, visible bool, op Kind) error {
	if err := r.requireEntity(name, op); err != nil {
		return err
	}
	return r.doc.SetAlwaysVisible(name, visible)
}

func (r *replayer) moveWidget(index int, pos domain.Position, op Kind) error {
	if err := r.requireWidget(index, op); err != nil {
		return err
	}
	return r.doc.SetWidgetPosition(index, pos)
}

func (r *replayer) resizeWidget(index int, size domain.Size, pos domain.Position, op Kind) error {
	if err := r.requireWidget(index, op); err != nil {
		return err
	}
	if err := r.doc.SetWidgetSize(index, size); err != nil {
		return err
	}
	return r.doc.SetWidgetPosition(index, pos)
}

// swapWidget exchanges the stored content with the document's, so the same record
// serves both directions.
func (r *replayer) swapWidget(rec *ModifiedWidget) error {
	if err := r.requireWidget(rec.Index, rec.Kind()); err != nil {
		return err
	}
	current, err := r.doc.WidgetContent(rec.Index)
	if err != nil {
		return fmt.Errorf("read widget %d: %w", rec.Index, err)
	}
	if err := r.doc.ReplaceWidgetContent(rec.Index, rec.Snapshot); err != nil {
		return fmt.Errorf("replace widget %d: %w", rec.Index, err)
	}
	rec.Snapshot = current
	return nil
}

func (r *replayer) simulationTime(t domain.SimulationTime) error {
	return r.doc.SetSimulationTime(t.Start, t.Step, t.Stop)
}

// shiftConnectors drags the routing points of every connector whose two entities both
// moved in this replay, unless it was shifted explicitly or recreated from a snapshot.
func (r *replayer) shiftConnectors() error {
	if len(r.moved) == 0 {
		return nil
	}
	for _, ref := range r.doc.Connectors() {
		if r.shifted[ref] {
			continue
		}
		start, okStart := r.moved[ref.Start.Entity]
		_, okEnd := r.moved[ref.End.Entity]
		if !okStart || !okEnd {
			continue
		}
		if start.X == 0 && start.Y == 0 {
			continue
		}
		r.logger.Debug("shifting connector with its entities", "connector", ref.String(), "dx", start.X, "dy", start.Y)
		if err := r.doc.ShiftConnectorPoints(ref, start.X, start.Y); err != nil {
			return fmt.Errorf("shift connector %s: %w", ref, err)
		}
	}
	return nil
}

package undo

import "github.com/Hopsan/hopsan-sub008/pkg/domain"

// The Register* methods append one record to the post at the position. They are
// no-ops while the stack is disabled. Registering with no open post begins an
// unlabeled transaction first.

// RegisterAddedEntity records a new component or system port with its full content.
func (s *Stack) RegisterAddedEntity(name string, snapshot domain.Snapshot) {
	s.record(&AddedEntity{Name: name, Snapshot: snapshot})
}

// RegisterDeletedEntity records a removed entity; snapshot is its content before removal.
func (s *Stack) RegisterDeletedEntity(name string, snapshot domain.Snapshot) {
	s.record(&DeletedEntity{Name: name, Snapshot: snapshot})
}

// RegisterAddedConnector records a new connector.
func (s *Stack) RegisterAddedConnector(ref domain.ConnectorRef, snapshot domain.Snapshot) {
	s.record(&AddedConnector{Connector: ref, Snapshot: snapshot})
}

// RegisterDeletedConnector records a removed connector and its content.
func (s *Stack) RegisterDeletedConnector(ref domain.ConnectorRef, snapshot domain.Snapshot) {
	s.record(&DeletedConnector{Connector: ref, Snapshot: snapshot})
}

// RegisterRename records an entity rename.
func (s *Stack) RegisterRename(oldName, newName string) {
	s.record(&Renamed{OldName: oldName, NewName: newName})
}

// RegisterMove records an entity move from oldPos to newPos.
func (s *Stack) RegisterMove(name string, oldPos, newPos domain.Position) {
	s.record(&Moved{Name: name, OldPosition: oldPos, NewPosition: newPos})
}

// RegisterRotate records a rotation by angle degrees.
func (s *Stack) RegisterRotate(name string, angle float64) {
	s.record(&Rotated{Name: name, Angle: angle})
}

// RegisterHorizontalFlip records a horizontal flip.
func (s *Stack) RegisterHorizontalFlip(name string) {
	s.record(&FlippedHorizontal{Name: name})
}

// RegisterVerticalFlip records a vertical flip.
func (s *Stack) RegisterVerticalFlip(name string) {
	s.record(&FlippedVertical{Name: name})
}

// RegisterModifiedConnector records a drag of one connector segment.
func (s *Stack) RegisterModifiedConnector(ref domain.ConnectorRef, segment int, oldPos, newPos domain.Position) {
	s.record(&ModifiedConnectorSegment{Connector: ref, Segment: segment, OldPosition: oldPos, NewPosition: newPos})
}

// RegisterConnectorShift records a shift of every interior point of a connector.
func (s *Stack) RegisterConnectorShift(ref domain.ConnectorRef, dx, dy float64) {
	s.record(&ConnectorBulkShift{Connector: ref, DX: dx, DY: dy})
}

// RegisterChangedParameter records a parameter edit.
func (s *Stack) RegisterChangedParameter(name, parameter, oldValue, newValue string) {
	s.record(&ParameterChanged{Name: name, Parameter: parameter, OldValue: oldValue, NewValue: newValue})
}

// RegisterNameVisibilityChange takes the flag as it was before the toggle.
func (s *Stack) RegisterNameVisibilityChange(name string, previous bool) {
	s.record(&NameVisibilityChanged{Name: name, Previous: previous})
}

// RegisterAlwaysVisibleChange takes the flag as it was before the toggle.
func (s *Stack) RegisterAlwaysVisibleChange(name string, previous bool) {
	s.record(&AlwaysVisibleChanged{Name: name, Previous: previous})
}

// RegisterAddedWidget records a new text box or image widget.
func (s *Stack) RegisterAddedWidget(index int, snapshot domain.Snapshot) {
	s.record(&AddedWidget{Index: index, Snapshot: snapshot})
}

// RegisterDeletedWidget records a removed widget and its content.
func (s *Stack) RegisterDeletedWidget(index int, snapshot domain.Snapshot) {
	s.record(&DeletedWidget{Index: index, Snapshot: snapshot})
}

// RegisterMovedWidget records a widget move.
func (s *Stack) RegisterMovedWidget(index int, oldPos, newPos domain.Position) {
	s.record(&MovedWidget{Index: index, OldPosition: oldPos, NewPosition: newPos})
}

// RegisterResizedWidget records a resize; corner drags change the position too.
func (s *Stack) RegisterResizedWidget(index int, oldSize domain.Size, oldPos domain.Position, newSize domain.Size, newPos domain.Position) {
	s.record(&ResizedWidget{Index: index, OldSize: oldSize, OldPosition: oldPos, NewSize: newSize, NewPosition: newPos})
}

// RegisterModifiedWidget takes the full widget content from before the edit.
func (s *Stack) RegisterModifiedWidget(index int, prior domain.Snapshot) {
	s.record(&ModifiedWidget{Index: index, Snapshot: prior})
}

// RegisterSimulationTimeChange records an edit of start, step and stop time.
func (s *Stack) RegisterSimulationTimeChange(oldTime, newTime domain.SimulationTime) {
	s.record(&SimulationTimeChanged{Old: oldTime, New: newTime})
}

// RegisterRemovedAliases records aliases removed along with their components.
// An empty list records nothing.
func (s *Stack) RegisterRemovedAliases(aliases []domain.Alias) {
	if len(aliases) == 0 {
		return
	}
	cp := make([]domain.Alias, len(aliases))
	copy(cp, aliases)
	s.record(&RemovedAliases{Aliases: cp})
}

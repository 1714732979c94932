package undo

import "github.com/Hopsan/hopsan-sub008/pkg/domain"

// Kind is the persisted discriminator of a record.
type Kind string

const (
	KindAddedEntity              Kind = "addedobject"
	KindDeletedEntity            Kind = "deletedobject"
	KindAddedConnector           Kind = "addedconnector"
	KindDeletedConnector         Kind = "deletedconnector"
	KindRenamed                  Kind = "rename"
	KindMoved                    Kind = "movedobject"
	KindRotated                  Kind = "rotate"
	KindFlippedHorizontal        Kind = "horizontalflip"
	KindFlippedVertical          Kind = "verticalflip"
	KindModifiedConnectorSegment Kind = "modifiedconnector"
	KindConnectorBulkShift       Kind = "movedconnector"
	KindParameterChanged         Kind = "changedparameter"
	KindNameVisibilityChanged    Kind = "namevisibilitychange"
	KindAlwaysVisibleChanged     Kind = "alwaysvisiblechange"
	KindAddedWidget              Kind = "addedwidget"
	KindDeletedWidget            Kind = "deletedwidget"
	KindMovedWidget              Kind = "movedwidget"
	KindResizedWidget            Kind = "resizedwidget"
	KindModifiedWidget           Kind = "modifiedwidget"
	KindSimulationTimeChanged    Kind = "simulationtime"
	KindRemovedAliases           Kind = "removedaliases"
)

// Record is one reversible change. The set of implementations is closed; every record
// carries enough data to be replayed in both directions.
type Record interface {
	Kind() Kind
	isRecord()
}

// AddedEntity records the creation of a component or system port.
type AddedEntity struct {
	Name     string          `mapstructure:"name"`
	Snapshot domain.Snapshot `mapstructure:"snapshot"`
}

// DeletedEntity records the removal of an entity; Snapshot is its content before removal.
type DeletedEntity struct {
	Name     string          `mapstructure:"name"`
	Snapshot domain.Snapshot `mapstructure:"snapshot"`
}

// AddedConnector records a new connector between two ports.
type AddedConnector struct {
	Connector domain.ConnectorRef `mapstructure:"connector"`
	Snapshot  domain.Snapshot     `mapstructure:"snapshot"`
}

// DeletedConnector records the removal of a connector.
type DeletedConnector struct {
	Connector domain.ConnectorRef `mapstructure:"connector"`
	Snapshot  domain.Snapshot     `mapstructure:"snapshot"`
}

// Renamed records an entity rename.
type Renamed struct {
	OldName string `mapstructure:"old_name"`
	NewName string `mapstructure:"new_name"`
}

// Moved records an entity move.
type Moved struct {
	Name        string          `mapstructure:"name"`
	OldPosition domain.Position `mapstructure:"old_position"`
	NewPosition domain.Position `mapstructure:"new_position"`
}

// Rotated records a rotation by Angle degrees.
type Rotated struct {
	Name  string  `mapstructure:"name"`
	Angle float64 `mapstructure:"angle"`
}

// FlippedHorizontal records a horizontal flip. Flips are their own inverse.
type FlippedHorizontal struct {
	Name string `mapstructure:"name"`
}

// FlippedVertical records a vertical flip.
type FlippedVertical struct {
	Name string `mapstructure:"name"`
}

// ModifiedConnectorSegment records a drag of one connector segment.
type ModifiedConnectorSegment struct {
	Connector   domain.ConnectorRef `mapstructure:"connector"`
	Segment     int                 `mapstructure:"segment"`
	OldPosition domain.Position     `mapstructure:"old_position"`
	NewPosition domain.Position     `mapstructure:"new_position"`
}

// ConnectorBulkShift records a shift of every interior point of a connector.
// It is normally derived by the replay engine; editors register it only when they
// shift a connector without moving both of its entities.
type ConnectorBulkShift struct {
	Connector domain.ConnectorRef `mapstructure:"connector"`
	DX        float64             `mapstructure:"dx"`
	DY        float64             `mapstructure:"dy"`
}

// ParameterChanged records a parameter edit.
type ParameterChanged struct {
	Name      string `mapstructure:"name"`
	Parameter string `mapstructure:"parameter"`
	OldValue  string `mapstructure:"old_value"`
	NewValue  string `mapstructure:"new_value"`
}

// NameVisibilityChanged records a toggle of the name label; Previous is the flag before.
type NameVisibilityChanged struct {
	Name     string `mapstructure:"name"`
	Previous bool   `mapstructure:"previous"`
}

// AlwaysVisibleChanged records a toggle of the always-visible flag.
type AlwaysVisibleChanged struct {
	Name     string `mapstructure:"name"`
	Previous bool   `mapstructure:"previous"`
}

// AddedWidget records a new text box or image widget.
type AddedWidget struct {
	Index    int             `mapstructure:"index"`
	Snapshot domain.Snapshot `mapstructure:"snapshot"`
}

// DeletedWidget records the removal of a widget.
type DeletedWidget struct {
	Index    int             `mapstructure:"index"`
	Snapshot domain.Snapshot `mapstructure:"snapshot"`
}

// MovedWidget records a widget move.
type MovedWidget struct {
	Index       int             `mapstructure:"index"`
	OldPosition domain.Position `mapstructure:"old_position"`
	NewPosition domain.Position `mapstructure:"new_position"`
}

// ResizedWidget records a widget resize; resizing from a corner also moves it.
type ResizedWidget struct {
	Index       int             `mapstructure:"index"`
	OldSize     domain.Size     `mapstructure:"old_size"`
	OldPosition domain.Position `mapstructure:"old_position"`
	NewSize     domain.Size     `mapstructure:"new_size"`
	NewPosition domain.Position `mapstructure:"new_position"`
}

// ModifiedWidget replaces the whole content of a widget. Snapshot holds the content
// that is not currently shown; each application swaps it with the document's.
type ModifiedWidget struct {
	Index    int             `mapstructure:"index"`
	Snapshot domain.Snapshot `mapstructure:"snapshot"`
}

// SimulationTimeChanged records an edit of start, step and stop time.
type SimulationTimeChanged struct {
	Old domain.SimulationTime `mapstructure:"old"`
	New domain.SimulationTime `mapstructure:"new"`
}

// RemovedAliases records variable aliases removed together with their components.
// Undo recreates them; redo has nothing to replay.
type RemovedAliases struct {
	Aliases []domain.Alias `mapstructure:"aliases"`
}

// Unknown carries a persisted record whose discriminator this build does not know.
// Replay skips it in both directions and History writes Entry back unchanged, so a
// newer editor's records survive a round trip through an older one.
type Unknown struct {
	Entry domain.RecordEntry
}

func (u *Unknown) Kind() Kind { return Kind(u.Entry.What()) }
func (*Unknown) isRecord()    {}

func (*AddedEntity) Kind() Kind              { return KindAddedEntity }
func (*DeletedEntity) Kind() Kind            { return KindDeletedEntity }
func (*AddedConnector) Kind() Kind           { return KindAddedConnector }
func (*DeletedConnector) Kind() Kind         { return KindDeletedConnector }
func (*Renamed) Kind() Kind                  { return KindRenamed }
func (*Moved) Kind() Kind                    { return KindMoved }
func (*Rotated) Kind() Kind                  { return KindRotated }
func (*FlippedHorizontal) Kind() Kind        { return KindFlippedHorizontal }
func (*FlippedVertical) Kind() Kind          { return KindFlippedVertical }
func (*ModifiedConnectorSegment) Kind() Kind { return KindModifiedConnectorSegment }
func (*ConnectorBulkShift) Kind() Kind       { return KindConnectorBulkShift }
func (*ParameterChanged) Kind() Kind         { return KindParameterChanged }
func (*NameVisibilityChanged) Kind() Kind    { return KindNameVisibilityChanged }
func (*AlwaysVisibleChanged) Kind() Kind     { return KindAlwaysVisibleChanged }
func (*AddedWidget) Kind() Kind              { return KindAddedWidget }
func (*DeletedWidget) Kind() Kind            { return KindDeletedWidget }
func (*MovedWidget) Kind() Kind              { return KindMovedWidget }
func (*ResizedWidget) Kind() Kind            { return KindResizedWidget }
func (*ModifiedWidget) Kind() Kind           { return KindModifiedWidget }
func (*SimulationTimeChanged) Kind() Kind    { return KindSimulationTimeChanged }
func (*RemovedAliases) Kind() Kind           { return KindRemovedAliases }

func (*AddedEntity) isRecord()              {}
func (*DeletedEntity) isRecord()            {}
func (*AddedConnector) isRecord()           {}
func (*DeletedConnector) isRecord()         {}
func (*Renamed) isRecord()                  {}
func (*Moved) isRecord()                    {}
func (*Rotated) isRecord()                  {}
func (*FlippedHorizontal) isRecord()        {}
func (*FlippedVertical) isRecord()          {}
func (*ModifiedConnectorSegment) isRecord() {}
func (*ConnectorBulkShift) isRecord()       {}
func (*ParameterChanged) isRecord()         {}
func (*NameVisibilityChanged) isRecord()    {}
func (*AlwaysVisibleChanged) isRecord()     {}
func (*AddedWidget) isRecord()              {}
func (*DeletedWidget) isRecord()            {}
func (*MovedWidget) isRecord()              {}
func (*ResizedWidget) isRecord()            {}
func (*ModifiedWidget) isRecord()           {}
func (*SimulationTimeChanged) isRecord()    {}
func (*RemovedAliases) isRecord()           {}

// newRecord returns an empty record for a persisted discriminator, or nil if unknown.
func newRecord(kind Kind) Record {
	switch kind {
	case KindAddedEntity:
		return &AddedEntity{}
	case KindDeletedEntity:
		return &DeletedEntity{}
	case KindAddedConnector:
		return &AddedConnector{}
	case KindDeletedConnector:
		return &DeletedConnector{}
	case KindRenamed:
		return &Renamed{}
	case KindMoved:
		return &Moved{}
	case KindRotated:
		return &Rotated{}
	case KindFlippedHorizontal:
		return &FlippedHorizontal{}
	case KindFlippedVertical:
		return &FlippedVertical{}
	case KindModifiedConnectorSegment:
		return &ModifiedConnectorSegment{}
	case KindConnectorBulkShift:
		return &ConnectorBulkShift{}
	case KindParameterChanged:
		return &ParameterChanged{}
	case KindNameVisibilityChanged:
		return &NameVisibilityChanged{}
	case KindAlwaysVisibleChanged:
		return &AlwaysVisibleChanged{}
	case KindAddedWidget:
		return &AddedWidget{}
	case KindDeletedWidget:
		return &DeletedWidget{}
	case KindMovedWidget:
		return &MovedWidget{}
	case KindResizedWidget:
		return &ResizedWidget{}
	case KindModifiedWidget:
		return &ModifiedWidget{}
	case KindSimulationTimeChanged:
		return &SimulationTimeChanged{}
	case KindRemovedAliases:
		return &RemovedAliases{}
	}
	return nil
}

// structural reports whether a record creates or removes graph elements.
// Structural records are replayed in dedicated phases; everything else is a value change.
func structural(r Record) bool {
	switch r.(type) {
	case *AddedEntity, *DeletedEntity, *AddedConnector, *DeletedConnector, *AddedWidget, *DeletedWidget:
		return true
	}
	return false
}

package ports

import "github.com/Hopsan/hopsan-sub008/pkg/domain"

// Document is the mutable model graph an undo stack replays against.
//
// Implementations own all snapshot encoding: a Snapshot returned by the editor when a
// record was registered must be accepted back by CreateEntity, CreateConnector,
// CreateWidget or ReplaceWidgetContent unchanged.
type Document interface {
	// CreateEntity reconstructs an entity from its snapshot and returns its name.
	CreateEntity(snapshot domain.Snapshot) (string, error)
	DeleteEntity(name string) error
	RenameEntity(oldName, newName string) error
	SetPosition(name string, pos domain.Position) error
	Rotate(name string, angle float64) error
	FlipHorizontal(name string) error
	FlipVertical(name string) error
	SetParameter(name, parameter, value string) error
	SetNameVisible(name string, visible bool) error
	SetAlwaysVisible(name string, visible bool) error

	CreateConnector(snapshot domain.Snapshot) error
	DeleteConnector(ref domain.ConnectorRef) error
	// ShiftConnectorPoints moves every interior routing point of the connector by (dx, dy).
	ShiftConnectorPoints(ref domain.ConnectorRef, dx, dy float64) error
	SetConnectorSegmentPosition(ref domain.ConnectorRef, segment int, pos domain.Position) error
	// Connectors lists every connector currently in the graph.
	Connectors() []domain.ConnectorRef

	CreateWidget(snapshot domain.Snapshot, index int) error
	DeleteWidget(index int) error
	SetWidgetPosition(index int, pos domain.Position) error
	SetWidgetSize(index int, size domain.Size) error
	// WidgetContent returns the current full content of a widget.
	WidgetContent(index int) (domain.Snapshot, error)
	ReplaceWidgetContent(index int, snapshot domain.Snapshot) error

	SetSimulationTime(start, step, stop float64) error
	SetAlias(alias, fullName string) error

	EntityExists(name string) bool
	ConnectorExists(ref domain.ConnectorRef) bool
	WidgetExists(index int) bool
}

// MessageHandler surfaces user-visible errors.
type MessageHandler interface {
	ReportError(text string)
}

// MessageHandlerFunc adapts a plain function to MessageHandler.
type MessageHandlerFunc func(text string)

// ReportError calls f(text).
func (f MessageHandlerFunc) ReportError(text string) {
	f(text)
}

package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/Hopsan/hopsan-sub008/pkg/domain"
)

// Entity is a component or system port of the in-memory model graph.
type Entity struct {
	Name          string            `json:"name"`
	Type          string            `json:"type,omitempty"`
	Position      domain.Position   `json:"position"`
	Angle         float64           `json:"angle,omitempty"`
	FlippedH      bool              `json:"flipped_h,omitempty"`
	FlippedV      bool              `json:"flipped_v,omitempty"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	NameVisible   bool              `json:"name_visible"`
	AlwaysVisible bool              `json:"always_visible,omitempty"`
}

// Connector links two entity ports through a list of routing points.
type Connector struct {
	Ref    domain.ConnectorRef `json:"ref"`
	Points []domain.Position   `json:"points,omitempty"`
}

// Widget is a text box or image on the canvas.
type Widget struct {
	Kind     string          `json:"kind"`
	Position domain.Position `json:"position"`
	Size     domain.Size     `json:"size"`
	Content  string          `json:"content,omitempty"`
}

// Document is an in-memory ports.Document. Snapshots are the JSON encoding of
// Entity, Connector and Widget. Safe for concurrent use.
type Document struct {
	mu         sync.RWMutex
	entities   map[string]*Entity
	connectors []*Connector
	widgets    map[int]*Widget
	simTime    domain.SimulationTime
	aliases    map[string]string
}

// NewDocument creates an empty document with the default simulation time 0:0.001:10.
func NewDocument() *Document {
	return &Document{
		entities: make(map[string]*Entity),
		widgets:  make(map[int]*Widget),
		simTime:  domain.SimulationTime{Start: 0, Step: 0.001, Stop: 10},
		aliases:  make(map[string]string),
	}
}

func snapshot(v any) (domain.Snapshot, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return domain.Snapshot(b), nil
}

func (e *Entity) clone() *Entity {
	cp := *e
	if e.Parameters != nil {
		cp.Parameters = make(map[string]string, len(e.Parameters))
		for k, v := range e.Parameters {
			cp.Parameters[k] = v
		}
	}
	return &cp
}

func (c *Connector) clone() *Connector {
	cp := *c
	cp.Points = append([]domain.Position(nil), c.Points...)
	return &cp
}

// --- Editor side: mutations that return the snapshot to register ---

// AddEntity inserts an entity and returns its snapshot.
func (d *Document) AddEntity(e Entity) (domain.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.Name == "" {
		return "", fmt.Errorf("entity missing name")
	}
	if _, ok := d.entities[e.Name]; ok {
		return "", fmt.Errorf("%w: %s", domain.ErrEntityExists, e.Name)
	}
	stored := e.clone()
	d.entities[e.Name] = stored
	return snapshot(stored)
}

// AddConnector inserts a connector and returns its snapshot.
func (d *Document) AddConnector(c Connector) (domain.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.addConnector(c.clone()); err != nil {
		return "", err
	}
	return snapshot(c)
}

// AddWidget inserts a widget at index and returns its snapshot.
func (d *Document) AddWidget(index int, w Widget) (domain.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.widgets[index]; ok {
		return "", fmt.Errorf("widget %d already exists", index)
	}
	cp := w
	d.widgets[index] = &cp
	return snapshot(cp)
}

// EntitySnapshot returns the current snapshot of an entity.
func (d *Document) EntitySnapshot(name string) (domain.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownEntity, name)
	}
	return snapshot(e)
}

// ConnectorSnapshot returns the current snapshot of a connector.
func (d *Document) ConnectorSnapshot(ref domain.ConnectorRef) (domain.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, c := d.findConnector(ref)
	if c == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownConnector, ref)
	}
	return snapshot(c)
}

// WidgetSnapshot returns the current snapshot of a widget.
func (d *Document) WidgetSnapshot(index int) (domain.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.widgets[index]
	if !ok {
		return "", fmt.Errorf("%w: %d", domain.ErrUnknownWidget, index)
	}
	return snapshot(w)
}

// Entity returns a copy of the named entity.
func (d *Document) Entity(name string) (Entity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[name]
	if !ok {
		return Entity{}, false
	}
	return *e.clone(), true
}

// Entities returns the sorted entity names.
func (d *Document) Entities() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.entities))
	for n := range d.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Connector returns a copy of the connector.
func (d *Document) Connector(ref domain.ConnectorRef) (Connector, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, c := d.findConnector(ref)
	if c == nil {
		return Connector{}, false
	}
	return *c.clone(), true
}

// Widget returns a copy of the widget at index.
func (d *Document) Widget(index int) (Widget, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.widgets[index]
	if !ok {
		return Widget{}, false
	}
	return *w, true
}

// SimulationTime returns the current simulation time settings.
func (d *Document) SimulationTime() domain.SimulationTime {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.simTime
}

// Alias resolves a variable alias.
func (d *Document) Alias(alias string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	full, ok := d.aliases[alias]
	return full, ok
}

// RemoveAlias drops a variable alias.
func (d *Document) RemoveAlias(alias string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.aliases, alias)
}

// --- ports.Document ---

func (d *Document) CreateEntity(s domain.Snapshot) (string, error) {
	var e Entity
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return "", fmt.Errorf("decode entity snapshot: %w", err)
	}
	if _, err := d.AddEntity(e); err != nil {
		return "", err
	}
	return e.Name, nil
}

// DeleteEntity removes an entity together with every connector attached to it.
func (d *Document) DeleteEntity(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entities[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, name)
	}
	delete(d.entities, name)
	kept := d.connectors[:0]
	for _, c := range d.connectors {
		if !c.Ref.Connects(name) {
			kept = append(kept, c)
		}
	}
	d.connectors = kept
	return nil
}

func (d *Document) RenameEntity(oldName, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entities[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := d.entities[newName]; taken {
		return fmt.Errorf("%w: %s", domain.ErrEntityExists, newName)
	}
	delete(d.entities, oldName)
	e.Name = newName
	d.entities[newName] = e
	for _, c := range d.connectors {
		if c.Ref.Start.Entity == oldName {
			c.Ref.Start.Entity = newName
		}
		if c.Ref.End.Entity == oldName {
			c.Ref.End.Entity = newName
		}
	}
	return nil
}

func (d *Document) withEntity(name string, fn func(*Entity)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entities[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, name)
	}
	fn(e)
	return nil
}

func (d *Document) SetPosition(name string, pos domain.Position) error {
	return d.withEntity(name, func(e *Entity) { e.Position = pos })
}

// Rotate turns the entity by angle degrees, normalized to [0, 360).
func (d *Document) Rotate(name string, angle float64) error {
	return d.withEntity(name, func(e *Entity) {
		a := e.Angle + angle
		for a < 0 {
			a += 360
		}
		for a >= 360 {
			a -= 360
		}
		e.Angle = a
	})
}

func (d *Document) FlipHorizontal(name string) error {
	return d.withEntity(name, func(e *Entity) { e.FlippedH = !e.FlippedH })
}

func (d *Document) FlipVertical(name string) error {
	return d.withEntity(name, func(e *Entity) { e.FlippedV = !e.FlippedV })
}

func (d *Document) SetParameter(name, parameter, value string) error {
	return d.withEntity(name, func(e *Entity) {
		if e.Parameters == nil {
			e.Parameters = make(map[string]string)
		}
		e.Parameters[parameter] = value
	})
}

func (d *Document) SetNameVisible(name string, visible bool) error {
	return d.withEntity(name, func(e *Entity) { e.NameVisible = visible })
}

func (d *Document) SetAlwaysVisible(name string, visible bool) error {
	return d.withEntity(name, func(e *Entity) { e.AlwaysVisible = visible })
}

func (d *Document) findConnector(ref domain.ConnectorRef) (int, *Connector) {
	for i, c := range d.connectors {
		if c.Ref == ref {
			return i, c
		}
	}
	return -1, nil
}

func (d *Document) addConnector(c *Connector) error {
	for _, ep := range []domain.Endpoint{c.Ref.Start, c.Ref.End} {
		if _, ok := d.entities[ep.Entity]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, ep.Entity)
		}
	}
	if _, existing := d.findConnector(c.Ref); existing != nil {
		return fmt.Errorf("connector %s already exists", c.Ref)
	}
	d.connectors = append(d.connectors, c)
	return nil
}

func (d *Document) CreateConnector(s domain.Snapshot) error {
	var c Connector
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return fmt.Errorf("decode connector snapshot: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addConnector(&c)
}

func (d *Document) DeleteConnector(ref domain.ConnectorRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, c := d.findConnector(ref)
	if c == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnector, ref)
	}
	d.connectors = append(d.connectors[:i], d.connectors[i+1:]...)
	return nil
}

func (d *Document) ShiftConnectorPoints(ref domain.ConnectorRef, dx, dy float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, c := d.findConnector(ref)
	if c == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnector, ref)
	}
	delta := domain.Position{X: dx, Y: dy}
	for i := range c.Points {
		c.Points[i] = c.Points[i].Add(delta)
	}
	return nil
}

func (d *Document) SetConnectorSegmentPosition(ref domain.ConnectorRef, segment int, pos domain.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, c := d.findConnector(ref)
	if c == nil {
		return fmt.Errorf("%w: %s", domain.ErrUnknownConnector, ref)
	}
	if segment < 0 || segment >= len(c.Points) {
		return fmt.Errorf("connector %s has no segment %d", ref, segment)
	}
	c.Points[segment] = pos
	return nil
}

func (d *Document) Connectors() []domain.ConnectorRef {
	d.mu.RLock()
	defer d.mu.RUnlock()
	refs := make([]domain.ConnectorRef, len(d.connectors))
	for i, c := range d.connectors {
		refs[i] = c.Ref
	}
	return refs
}

func (d *Document) CreateWidget(s domain.Snapshot, index int) error {
	var w Widget
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return fmt.Errorf("decode widget snapshot: %w", err)
	}
	_, err := d.AddWidget(index, w)
	return err
}

func (d *Document) DeleteWidget(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.widgets[index]; !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownWidget, index)
	}
	delete(d.widgets, index)
	return nil
}

func (d *Document) withWidget(index int, fn func(*Widget)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.widgets[index]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownWidget, index)
	}
	fn(w)
	return nil
}

func (d *Document) SetWidgetPosition(index int, pos domain.Position) error {
	return d.withWidget(index, func(w *Widget) { w.Position = pos })
}

func (d *Document) SetWidgetSize(index int, size domain.Size) error {
	return d.withWidget(index, func(w *Widget) { w.Size = size })
}

// WidgetContent returns the widget's text or image reference.
func (d *Document) WidgetContent(index int) (domain.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.widgets[index]
	if !ok {
		return "", fmt.Errorf("%w: %d", domain.ErrUnknownWidget, index)
	}
	return domain.Snapshot(w.Content), nil
}

func (d *Document) ReplaceWidgetContent(index int, s domain.Snapshot) error {
	return d.withWidget(index, func(w *Widget) { w.Content = string(s) })
}

func (d *Document) SetSimulationTime(start, step, stop float64) error {
	if step <= 0 || stop < start {
		return fmt.Errorf("invalid simulation time %g:%g:%g", start, step, stop)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.simTime = domain.SimulationTime{Start: start, Step: step, Stop: stop}
	return nil
}

func (d *Document) SetAlias(alias, fullName string) error {
	if alias == "" {
		return fmt.Errorf("empty alias for %s", fullName)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aliases[alias] = fullName
	return nil
}

func (d *Document) EntityExists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entities[name]
	return ok
}

func (d *Document) ConnectorExists(ref domain.ConnectorRef) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, c := d.findConnector(ref)
	return c != nil
}

func (d *Document) WidgetExists(index int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.widgets[index]
	return ok
}

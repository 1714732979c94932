package domain

import "fmt"

// Snapshot is an opaque description of an entity, connector or widget.
// It is produced and consumed by the Document; the undo log stores it verbatim.
type Snapshot string

// Endpoint is one end of a connector.
type Endpoint struct {
	Entity string `json:"entity" yaml:"entity" mapstructure:"entity"`
	Port   string `json:"port" yaml:"port" mapstructure:"port"`
}

// ConnectorRef identifies a connector by its two endpoints.
type ConnectorRef struct {
	Start Endpoint `json:"start" yaml:"start" mapstructure:"start"`
	End   Endpoint `json:"end" yaml:"end" mapstructure:"end"`
}

// Connects reports whether the connector touches the named entity.
func (c ConnectorRef) Connects(entity string) bool {
	return c.Start.Entity == entity || c.End.Entity == entity
}

func (c ConnectorRef) String() string {
	return fmt.Sprintf("%s.%s->%s.%s", c.Start.Entity, c.Start.Port, c.End.Entity, c.End.Port)
}

// Alias maps a short variable alias to its full component.port.variable name.
type Alias struct {
	Alias    string `json:"alias" yaml:"alias" mapstructure:"alias"`
	FullName string `json:"full_name" yaml:"full_name" mapstructure:"full_name"`
}

// SimulationTime holds the start, step and stop times of a model.
type SimulationTime struct {
	Start float64 `json:"start" yaml:"start" mapstructure:"start"`
	Step  float64 `json:"step" yaml:"step" mapstructure:"step"`
	Stop  float64 `json:"stop" yaml:"stop" mapstructure:"stop"`
}

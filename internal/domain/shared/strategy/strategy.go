// Package strategy names the pluggable algorithms a service selects at runtime.
package strategy

// Kind groups strategies that are interchangeable for one job.
type Kind string

// KindAllocation strategies pick inventory batches to cover a required quantity.
const KindAllocation Kind = "allocation"

// Strategy is implemented by every pluggable algorithm, usually by embedding Meta.
type Strategy interface {
	Name() string
	Type() Kind
	Description() string
}

// Meta is the identity part of a Strategy.
type Meta struct {
	name        string
	kind        Kind
	description string
}

func NewMeta(name string, kind Kind, description string) Meta {
	return Meta{name: name, kind: kind, description: description}
}

func (m Meta) Name() string        { return m.name }
func (m Meta) Type() Kind          { return m.kind }
func (m Meta) Description() string { return m.description }

// Descriptor is the listing form of a strategy.
type Descriptor struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

func Describe(s Strategy) Descriptor {
	return Descriptor{Name: s.Name(), Kind: s.Type(), Description: s.Description()}
}

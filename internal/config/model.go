package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of a network description, possibly
// assembled from several files.
type Model struct {
	Settings *Settings
	Actors   []*Actor
	Samplers []*Sampler
	Links    []*Link
}

// Settings holds the network-wide options of the optional `network` block.
type Settings struct {
	StrictRates     bool
	DefaultCapacity int
	// Decimation is the policy of automatically inserted adapters: "last"
	// (default) or "first".
	Decimation string
}

// Actor is the format-agnostic representation of an `actor` block.
type Actor struct {
	Type    string
	Name    string
	Rate    int
	Horizon int
	// Arguments is an object value, or cty.NilVal when none were given.
	Arguments cty.Value
	// Origin locates the declaration for error messages, e.g. "main.hcl:12".
	Origin string
}

// Sampler is the format-agnostic representation of a `sampler` block.
type Sampler struct {
	Name   string
	Rate   int
	Policy string
	Origin string
}

// Link is the format-agnostic representation of a `link` block.
type Link struct {
	From     string
	To       string
	Capacity int
	Feedback bool
	// Seeds are preloaded into the link before the run starts.
	Seeds  []cty.Value
	Origin string
}

// New returns an empty model.
func New() *Model {
	return &Model{Settings: &Settings{}}
}

// Merge appends the declarations of other to m. Settings are merged field by
// field; declaring the same setting twice with different values is an error.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	if other.Settings != nil {
		if err := m.mergeSettings(other.Settings); err != nil {
			return err
		}
	}
	m.Actors = append(m.Actors, other.Actors...)
	m.Samplers = append(m.Samplers, other.Samplers...)
	m.Links = append(m.Links, other.Links...)
	return nil
}

func (m *Model) mergeSettings(s *Settings) error {
	if m.Settings == nil {
		m.Settings = &Settings{}
	}
	if s.StrictRates {
		m.Settings.StrictRates = true
	}
	if s.DefaultCapacity != 0 {
		if m.Settings.DefaultCapacity != 0 && m.Settings.DefaultCapacity != s.DefaultCapacity {
			return fmt.Errorf("conflicting default_capacity settings: %d and %d", m.Settings.DefaultCapacity, s.DefaultCapacity)
		}
		m.Settings.DefaultCapacity = s.DefaultCapacity
	}
	if s.Decimation != "" {
		if m.Settings.Decimation != "" && m.Settings.Decimation != s.Decimation {
			return fmt.Errorf("conflicting decimation settings: '%s' and '%s'", m.Settings.Decimation, s.Decimation)
		}
		m.Settings.Decimation = s.Decimation
	}
	return nil
}

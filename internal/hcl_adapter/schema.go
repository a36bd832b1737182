package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block a network file may contain. Unknown
// blocks are rejected so that typos surface as diagnostics.
type fileRoot struct {
	Network  []*NetworkBlock `hcl:"network,block"`
	Actors   []*ActorBlock   `hcl:"actor,block"`
	Samplers []*SamplerBlock `hcl:"sampler,block"`
	Links    []*LinkBlock    `hcl:"link,block"`
}

// NetworkBlock holds network-wide settings.
type NetworkBlock struct {
	StrictRates     *bool   `hcl:"strict_rates,optional"`
	DefaultCapacity *int    `hcl:"default_capacity,optional"`
	Decimation      *string `hcl:"decimation,optional"`
}

// ArgumentsBlock is the free-form `arguments` block of an actor.
type ArgumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// ActorBlock represents `actor "<type>" "<name>" { ... }`.
type ActorBlock struct {
	Type      string          `hcl:"type,label"`
	Name      string          `hcl:"name,label"`
	Rate      *int            `hcl:"rate,optional"`
	Horizon   *int            `hcl:"horizon,optional"`
	Arguments *ArgumentsBlock `hcl:"arguments,block"`
	DeclRange hcl.Range       `hcl:",def_range"`
}

// SamplerBlock represents `sampler "<name>" { ... }`.
type SamplerBlock struct {
	Name      string    `hcl:"name,label"`
	Rate      int       `hcl:"rate"`
	Policy    *string   `hcl:"policy,optional"`
	DeclRange hcl.Range `hcl:",def_range"`
}

// LinkBlock represents an unlabelled `link { ... }` block.
type LinkBlock struct {
	From      string         `hcl:"from"`
	To        string         `hcl:"to"`
	Capacity  *int           `hcl:"capacity,optional"`
	Feedback  *bool          `hcl:"feedback,optional"`
	Seed      hcl.Expression `hcl:"seed,optional"`
	DeclRange hcl.Range      `hcl:",def_range"`
}

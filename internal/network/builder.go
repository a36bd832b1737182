package network

import (
	"fmt"
	"reflect"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/portid"
	"github.com/vk/dosgrid/internal/sampler"
)

// DefaultCapacity is the buffer depth of a link that does not set one.
const DefaultCapacity = 1

// Builder collects actor and link declarations and turns them into a
// runnable Network. Declaration errors are recorded and reported by Build,
// so calls can be chained.
type Builder struct {
	decls  []*decl
	byName map[string]int
	links  []*linkDecl
	errs   []error

	strict   bool
	capacity int
	policy   sampler.Policy
	built    bool
}

// Option configures a Builder.
type Option func(*Builder)

// StrictRates disables automatic adapter insertion: any edge joining
// different rates is reported as a RateMismatch.
func StrictRates() Option {
	return func(b *Builder) { b.strict = true }
}

// WithDefaultCapacity sets the capacity of links that do not set one.
func WithDefaultCapacity(n int) Option {
	return func(b *Builder) { b.capacity = n }
}

// WithDecimationPolicy sets the policy of automatically inserted adapters.
func WithDecimationPolicy(p sampler.Policy) Option {
	return func(b *Builder) { b.policy = p }
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		byName:   make(map[string]int),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.capacity < 1 {
		b.errs = append(b.errs, wiringErr(KindInvalidCapacity, "", "", "default capacity must be at least 1, got %d", b.capacity))
	}
	return b
}

// decl is an actor as declared, before it is instantiated.
type decl struct {
	name    string
	client  actor.Client
	rate    int
	horizon int

	// Samplers get their client, ports and input rate once their producer
	// is known.
	sampler    bool
	adapter    bool
	resolved   bool
	transition sampler.Transition
	spec       port.Spec
	inRate     int
}

func (d *decl) inputs() []port.Spec {
	if d.sampler {
		return []port.Spec{{Name: "in"}}
	}
	return d.client.Inputs()
}

func (d *decl) outputs() []port.Spec {
	if d.sampler {
		return []port.Spec{{Name: "out"}}
	}
	return d.client.Outputs()
}

func (d *decl) consumeRate() int {
	if d.sampler {
		return d.inRate
	}
	return d.rate
}

func (d *decl) source() bool {
	return len(d.inputs()) == 0
}

// outputSpec returns the typed spec of the i-th output. It is only valid once
// samplers are resolved.
func (d *decl) outputSpec(i int) port.Spec {
	if d.sampler {
		return d.spec.Rename("out")
	}
	return d.client.Outputs()[i]
}

func (d *decl) inputSpec(i int) port.Spec {
	if d.sampler {
		return d.spec.Rename("in")
	}
	return d.client.Inputs()[i]
}

// ActorOption configures an actor declaration.
type ActorOption func(*decl)

// Horizon bounds the number of activations of the actor.
func Horizon(n int) ActorOption {
	return func(d *decl) { d.horizon = n }
}

// Actor declares an actor running client at rate.
func (b *Builder) Actor(name string, client actor.Client, rate int, opts ...ActorOption) *Builder {
	d := &decl{name: name, client: client, rate: rate}
	for _, opt := range opts {
		opt(d)
	}
	if client == nil {
		b.errs = append(b.errs, wiringErr(KindUnknownActor, name, "", "client is nil"))
		return b
	}
	if d.horizon < 0 {
		b.errs = append(b.errs, wiringErr(KindInvalidRate, name, "", "horizon cannot be negative, got %d", d.horizon))
		return b
	}
	b.add(d)
	return b
}

// Sampler declares an explicit rate-transition adapter emitting at rate. Its
// input rate and value type are taken from whatever feeds its "in" port.
func (b *Builder) Sampler(name string, rate int, policy sampler.Policy) *Builder {
	b.add(&decl{name: name, rate: rate, sampler: true, transition: sampler.Transition{Policy: policy}})
	return b
}

func (b *Builder) add(d *decl) {
	if !portid.ValidName(d.name) {
		b.errs = append(b.errs, wiringErr(KindInvalidName, d.name, "", "actor names must be identifiers"))
		return
	}
	if _, ok := b.byName[d.name]; ok {
		b.errs = append(b.errs, wiringErr(KindDuplicateActor, d.name, "", "an actor with this name is already declared"))
		return
	}
	if d.rate < 1 {
		b.errs = append(b.errs, wiringErr(KindInvalidRate, d.name, "", "rate must be a positive integer, got %d", d.rate))
		return
	}
	b.byName[d.name] = len(b.decls)
	b.decls = append(b.decls, d)
}

// linkDecl is a link as declared.
type linkDecl struct {
	from, to portid.Ref
	capacity int
	seeds    []any
	feedback bool
	// typ is set by Connect and must match both ports.
	typ reflect.Type
}

// LinkOption configures a link declaration.
type LinkOption func(*linkDecl)

// Capacity sets the buffer depth of the link.
func Capacity(n int) LinkOption {
	return func(l *linkDecl) { l.capacity = n }
}

// Feedback marks the link as closing a loop. A feedback link must be seeded.
func Feedback() LinkOption {
	return func(l *linkDecl) { l.feedback = true }
}

// Seed marks the link as feedback and preloads values into its buffer so the
// consumer can activate before the producer has published anything.
func Seed(values ...any) LinkOption {
	return func(l *linkDecl) {
		l.feedback = true
		l.seeds = append(l.seeds, values...)
	}
}

// Link connects the output from to the input to, both written as
// "actor.port". The port may be omitted when the actor has a single port in
// that direction.
func (b *Builder) Link(from, to string, opts ...LinkOption) *Builder {
	src, err := portid.Parse(from)
	if err != nil {
		b.errs = append(b.errs, &WiringError{Kind: KindUnknownPort, Detail: "link source", Err: err})
		return b
	}
	dst, err := portid.Parse(to)
	if err != nil {
		b.errs = append(b.errs, &WiringError{Kind: KindUnknownPort, Detail: "link destination", Err: err})
		return b
	}
	b.link(src, dst, nil, opts)
	return b
}

func (b *Builder) link(from, to portid.Ref, typ reflect.Type, opts []LinkOption) {
	l := &linkDecl{from: from, to: to, capacity: b.capacity, typ: typ}
	for _, opt := range opts {
		opt(l)
	}
	if l.capacity < 1 {
		b.errs = append(b.errs, wiringErr(KindInvalidCapacity, to.Actor, to.Port, "capacity must be at least 1, got %d", l.capacity))
		return
	}
	b.links = append(b.links, l)
}

// Out is a typed reference to an output port.
type Out[T any] struct{ ref portid.Ref }

// In is a typed reference to an input port.
type In[T any] struct{ ref portid.Ref }

// OutputOf refers to the output port of actor carrying values of type T.
func OutputOf[T any](actor, port string) Out[T] {
	return Out[T]{ref: portid.New(actor, port)}
}

// InputOf refers to the input port of actor carrying values of type T.
func InputOf[T any](actor, port string) In[T] {
	return In[T]{ref: portid.New(actor, port)}
}

// Connect links two ports whose value type is fixed at compile time. Build
// still checks that both ports really carry T.
func Connect[T any](b *Builder, from Out[T], to In[T], opts ...LinkOption) *Builder {
	b.link(from.ref, to.ref, reflect.TypeFor[T](), opts)
	return b
}

func (b *Builder) String() string {
	return fmt.Sprintf("network builder (%d actors, %d links)", len(b.decls), len(b.links))
}

package network

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/portid"
	"github.com/vk/dosgrid/internal/sampler"
	"github.com/vk/dosgrid/internal/topology"
)

// endpoint addresses a port by actor index and port index.
type endpoint struct {
	actor int
	port  int
}

// edge is a link with resolved endpoints.
type edge struct {
	from, to endpoint
	capacity int
	seeds    []any
	feedback bool
	typ      reflect.Type
}

// Build validates the declarations and allocates every link. On success the
// returned Network is ready to run; on failure the error is a *WiringError
// and nothing has been started.
func (b *Builder) Build(ctx context.Context) (*Network, error) {
	logger := ctxlog.FromContext(ctx)
	if b.built {
		return nil, errors.New("builder has already been built")
	}
	b.built = true

	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	edges, err := b.resolveEndpoints()
	if err != nil {
		return nil, err
	}
	if err := b.checkProducers(edges); err != nil {
		return nil, err
	}
	if err := b.resolveSamplers(edges); err != nil {
		return nil, err
	}
	if err := b.checkTypes(edges); err != nil {
		return nil, err
	}
	edges, err = b.matchRates(edges)
	if err != nil {
		return nil, err
	}
	graph, err := b.analyze(edges)
	if err != nil {
		return nil, err
	}
	n, err := b.allocate(edges, graph)
	if err != nil {
		return nil, err
	}

	logger.Debug("Network built.", "actors", len(n.actors), "links", len(edges))
	return n, nil
}

func (b *Builder) resolveEndpoints() ([]*edge, error) {
	edges := make([]*edge, 0, len(b.links))
	for _, l := range b.links {
		from, err := b.resolve(l.from, true)
		if err != nil {
			return nil, err
		}
		to, err := b.resolve(l.to, false)
		if err != nil {
			return nil, err
		}
		edges = append(edges, &edge{
			from:     from,
			to:       to,
			capacity: l.capacity,
			seeds:    l.seeds,
			feedback: l.feedback,
			typ:      l.typ,
		})
	}
	return edges, nil
}

func (b *Builder) resolve(ref portid.Ref, output bool) (endpoint, error) {
	idx, ok := b.byName[ref.Actor]
	if !ok {
		return endpoint{}, wiringErr(KindUnknownActor, ref.Actor, ref.Port, "no actor with this name is declared")
	}
	d := b.decls[idx]

	specs, dir := d.inputs(), "input"
	if output {
		specs, dir = d.outputs(), "output"
	}
	if !ref.HasPort() {
		if len(specs) != 1 {
			return endpoint{}, wiringErr(KindUnknownPort, ref.Actor, "", "actor has %d %s ports, the port must be named", len(specs), dir)
		}
		return endpoint{actor: idx, port: 0}, nil
	}
	for i, s := range specs {
		if s.Name == ref.Port {
			return endpoint{actor: idx, port: i}, nil
		}
	}
	return endpoint{}, wiringErr(KindUnknownPort, ref.Actor, ref.Port, "actor has no %s port with this name", dir)
}

// checkProducers enforces exactly one producer per input.
func (b *Builder) checkProducers(edges []*edge) error {
	producers := make(map[endpoint]int)
	for _, e := range edges {
		producers[e.to]++
		if producers[e.to] > 1 {
			d := b.decls[e.to.actor]
			return wiringErr(KindMultipleProducers, d.name, d.inputs()[e.to.port].Name, "input is fed by more than one output")
		}
	}
	for i, d := range b.decls {
		for p, s := range d.inputs() {
			if producers[endpoint{actor: i, port: p}] == 0 {
				return wiringErr(KindMissingProducer, d.name, s.Name, "input is not connected")
			}
		}
	}
	return nil
}

// resolveSamplers gives every explicit sampler the type and rate of its
// producer. Chains of samplers are resolved front to back.
func (b *Builder) resolveSamplers(edges []*edge) error {
	feeding := make(map[int]*edge)
	pending := 0
	for _, e := range edges {
		if b.decls[e.to.actor].sampler {
			feeding[e.to.actor] = e
		}
	}
	for _, d := range b.decls {
		if d.sampler && !d.resolved {
			pending++
		}
	}

	for pending > 0 {
		progress := false
		for i, d := range b.decls {
			if !d.sampler || d.resolved {
				continue
			}
			e := feeding[i]
			p := b.decls[e.from.actor]
			if p.sampler && !p.resolved {
				continue
			}
			t, err := sampler.Resolve(p.rate, d.rate, d.transition.Policy)
			if err != nil {
				return &WiringError{Kind: KindRateMismatch, Actor: d.name, Port: "in", Detail: "sampler cannot bridge rates", Err: err}
			}
			d.transition = t
			d.spec = p.outputSpec(e.from.port)
			d.inRate = p.rate
			d.resolved = true
			pending--
			progress = true
		}
		if !progress {
			for _, d := range b.decls {
				if d.sampler && !d.resolved {
					return wiringErr(KindUnreachable, d.name, "", "sampler is only fed by other samplers in a loop")
				}
			}
		}
	}
	return nil
}

func (b *Builder) checkTypes(edges []*edge) error {
	for _, e := range edges {
		p, c := b.decls[e.from.actor], b.decls[e.to.actor]
		out, in := p.outputSpec(e.from.port), c.inputSpec(e.to.port)
		if out.Type != in.Type {
			return wiringErr(KindTypeMismatch, c.name, in.Name, "'%s.%s' produces %v, input expects %v", p.name, out.Name, out.Type, in.Type)
		}
		if e.typ != nil && e.typ != out.Type {
			return wiringErr(KindTypeMismatch, c.name, in.Name, "link is typed %v, ports carry %v", e.typ, out.Type)
		}
		if len(e.seeds) > e.capacity {
			return wiringErr(KindInvalidSeed, c.name, in.Name, "%d seed values do not fit a link of capacity %d", len(e.seeds), e.capacity)
		}
		for _, s := range e.seeds {
			if !seedFits(s, in.Type) {
				return wiringErr(KindInvalidSeed, c.name, in.Name, "seed of type %v for an input of type %v", reflect.TypeOf(s), in.Type)
			}
		}
	}
	return nil
}

// seedFits reports whether s can be stored in a link carrying typ. A nil seed
// only fits interface types.
func seedFits(s any, typ reflect.Type) bool {
	st := reflect.TypeOf(s)
	if st == nil {
		return typ.Kind() == reflect.Interface
	}
	return st.AssignableTo(typ)
}

// matchRates inserts an adapter on every edge joining different rates.
func (b *Builder) matchRates(edges []*edge) ([]*edge, error) {
	out := make([]*edge, 0, len(edges))
	for _, e := range edges {
		p, c := b.decls[e.from.actor], b.decls[e.to.actor]
		rp, rc := p.rate, c.consumeRate()
		if rp == rc {
			out = append(out, e)
			continue
		}
		inName := c.inputSpec(e.to.port).Name
		if b.strict {
			return nil, wiringErr(KindRateMismatch, c.name, inName, "producer '%s' runs at rate %d, consumer at rate %d", p.name, rp, rc)
		}
		t, err := sampler.Resolve(rp, rc, b.policy)
		if err != nil {
			return nil, &WiringError{Kind: KindRateMismatch, Actor: c.name, Port: inName, Err: err}
		}

		spec := p.outputSpec(e.from.port)
		name := fmt.Sprintf("rate(%s.%s->%s.%s)", p.name, spec.Name, c.name, inName)
		idx := len(b.decls)
		b.decls = append(b.decls, &decl{
			name:       name,
			rate:       rc,
			sampler:    true,
			adapter:    true,
			resolved:   true,
			transition: t,
			spec:       spec,
			inRate:     rp,
		})
		b.byName[name] = idx

		in := &edge{from: e.from, to: endpoint{actor: idx}, capacity: e.capacity}
		fwd := &edge{from: endpoint{actor: idx}, to: e.to, capacity: e.capacity}
		// Seeds must cover one consumer window: an upsampling adapter repeats
		// each seed k times, a decimating one would swallow them.
		if t.Mode == sampler.Upsample {
			in.seeds, in.feedback = e.seeds, e.feedback
		} else {
			fwd.seeds, fwd.feedback = e.seeds, e.feedback
		}
		out = append(out, in, fwd)
	}
	return out, nil
}

// analyze checks loops and reachability on the final graph.
func (b *Builder) analyze(edges []*edge) (*topology.Graph, error) {
	g := topology.New()
	for _, d := range b.decls {
		g.AddNode(d.name)
	}
	for _, e := range edges {
		c := b.decls[e.to.actor]
		if e.feedback && len(e.seeds) == 0 {
			return nil, wiringErr(KindUnseededCycle, c.name, c.inputSpec(e.to.port).Name, "feedback link has no seed value")
		}
		if err := g.AddEdge(b.decls[e.from.actor].name, c.name, e.feedback); err != nil {
			return nil, err
		}
	}

	if err := g.DetectCycles(); err != nil {
		var ce *topology.CycleError
		if errors.As(err, &ce) {
			return nil, wiringErr(KindUnseededCycle, ce.Path[0], "", "loop %s has no seeded feedback link", strings.Join(ce.Path, " -> "))
		}
		return nil, err
	}

	var sources []string
	for _, d := range b.decls {
		if d.source() {
			sources = append(sources, d.name)
		}
	}
	if lost := g.Unreachable(sources); len(lost) > 0 {
		return nil, wiringErr(KindUnreachable, lost[0], "", "no source feeds %s", strings.Join(lost, ", "))
	}
	return g, nil
}

// allocate instantiates the actors, creates one link per edge, preloads seeds
// and binds the channel ends.
func (b *Builder) allocate(edges []*edge, g *topology.Graph) (*Network, error) {
	actors := make([]*actor.Actor, len(b.decls))
	writers := make([][]port.Writer, len(b.decls))
	readers := make([][]port.Reader, len(b.decls))

	for i, d := range b.decls {
		var (
			a   *actor.Actor
			err error
		)
		if d.sampler {
			a, err = sampler.NewAdapter(d.name, d.spec, d.inRate, d.transition)
		} else {
			a, err = actor.New(actor.Config{Name: d.name, Client: d.client, Rate: d.rate, Horizon: d.horizon})
		}
		if err != nil {
			return nil, &WiringError{Kind: KindInvalidRate, Actor: d.name, Err: err}
		}
		actors[i] = a

		outs := a.Outputs()
		writers[i] = make([]port.Writer, len(outs))
		for p, s := range outs {
			w, err := s.NewOutput()
			if err != nil {
				return nil, &WiringError{Kind: KindTypeMismatch, Actor: d.name, Port: s.Name, Err: err}
			}
			writers[i][p] = w
		}
		readers[i] = make([]port.Reader, len(a.Inputs()))
	}

	links := make([]linkInfo, 0, len(edges))
	for _, e := range edges {
		p, c := b.decls[e.from.actor], b.decls[e.to.actor]
		r, err := writers[e.from.actor][e.from.port].Connect(e.capacity)
		if err != nil {
			return nil, &WiringError{Kind: KindInvalidCapacity, Actor: c.name, Err: err}
		}
		for _, s := range e.seeds {
			if err := r.Preload(s); err != nil {
				return nil, &WiringError{Kind: KindInvalidSeed, Actor: c.name, Port: c.inputSpec(e.to.port).Name, Err: err}
			}
		}
		readers[e.to.actor][e.to.port] = r
		links = append(links, linkInfo{
			From:     portid.New(p.name, p.outputSpec(e.from.port).Name),
			To:       portid.New(c.name, c.inputSpec(e.to.port).Name),
			Type:     p.outputSpec(e.from.port).Type,
			Capacity: e.capacity,
			Seeds:    len(e.seeds),
		})
	}

	for i, a := range actors {
		if err := a.Bind(readers[i], writers[i]); err != nil {
			return nil, fmt.Errorf("binding actor '%s': %w", a.Name(), err)
		}
	}

	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	meta := make([]actorInfo, len(b.decls))
	for i, d := range b.decls {
		meta[i] = actorInfo{adapter: d.adapter, sampler: d.sampler, transition: d.transition}
	}
	return newNetwork(actors, meta, links, order), nil
}

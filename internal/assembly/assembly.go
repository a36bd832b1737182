// Package assembly turns a loaded config model into a network builder,
// instantiating every actor's client through the registry.
package assembly

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/portid"
	"github.com/vk/dosgrid/internal/registry"
	"github.com/vk/dosgrid/internal/sampler"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Assemble declares every actor, sampler and link of m on a new builder.
// env supplies the output and telemetry defaults; its Name is set per actor.
// Configuration errors are returned here, wiring errors by Build.
func Assemble(ctx context.Context, m *config.Model, reg *registry.Registry, env registry.Env) (*network.Builder, error) {
	logger := ctxlog.FromContext(ctx)

	opts, err := builderOptions(m.Settings)
	if err != nil {
		return nil, err
	}
	b := network.NewBuilder(opts...)

	clients := make(map[string]actor.Client, len(m.Actors))
	for _, a := range m.Actors {
		e := env
		e.Name = a.Name
		client, err := reg.New(e, a.Type, a.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.Origin, err)
		}
		clients[a.Name] = client
		b.Actor(a.Name, client, a.Rate, network.Horizon(a.Horizon))
		logger.Debug("Actor declared.", "actor", a.Name, "type", a.Type, "rate", a.Rate)
	}

	for _, s := range m.Samplers {
		policy, err := sampler.ParsePolicy(s.Policy)
		if err != nil {
			return nil, fmt.Errorf("%s: sampler '%s': %w", s.Origin, s.Name, err)
		}
		b.Sampler(s.Name, s.Rate, policy)
	}

	types := &typeResolver{clients: clients, links: m.Links}
	for _, l := range m.Links {
		linkOpts, err := linkOptions(l, types)
		if err != nil {
			return nil, fmt.Errorf("%s: link %s -> %s: %w", l.Origin, l.From, l.To, err)
		}
		b.Link(l.From, l.To, linkOpts...)
	}
	return b, nil
}

func builderOptions(s *config.Settings) ([]network.Option, error) {
	if s == nil {
		return nil, nil
	}
	var opts []network.Option
	if s.StrictRates {
		opts = append(opts, network.StrictRates())
	}
	if s.DefaultCapacity != 0 {
		opts = append(opts, network.WithDefaultCapacity(s.DefaultCapacity))
	}
	policy, err := sampler.ParsePolicy(s.Decimation)
	if err != nil {
		return nil, err
	}
	return append(opts, network.WithDecimationPolicy(policy)), nil
}

func linkOptions(l *config.Link, types *typeResolver) ([]network.LinkOption, error) {
	var opts []network.LinkOption
	if l.Capacity != 0 {
		opts = append(opts, network.Capacity(l.Capacity))
	}
	if l.Feedback {
		opts = append(opts, network.Feedback())
	}
	if len(l.Seeds) == 0 {
		return opts, nil
	}

	to, err := portid.Parse(l.To)
	if err != nil {
		return nil, err
	}
	t, err := types.input(to, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot type seed values: %w", err)
	}
	seeds := make([]any, 0, len(l.Seeds))
	for i, v := range l.Seeds {
		s, err := seedValue(v, t)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		seeds = append(seeds, s)
	}
	return append(opts, network.Seed(seeds...)), nil
}

// seedValue converts v to a Go value of type t.
func seedValue(v cty.Value, t reflect.Type) (any, error) {
	ptr := reflect.New(t)
	if err := gocty.FromCtyValue(v, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("cannot use %s value as %v: %w", v.Type().FriendlyName(), t, err)
	}
	return ptr.Elem().Interface(), nil
}

// typeResolver finds the Go type of a port from the declared clients. The
// type of a sampler's ports is the type of whatever feeds it.
type typeResolver struct {
	clients map[string]actor.Client
	links   []*config.Link
}

// maxDepth bounds sampler chains so that a sampler loop cannot recurse
// forever; the builder reports such loops itself.
const maxDepth = 64

func (r *typeResolver) input(ref portid.Ref, depth int) (reflect.Type, error) {
	if c, ok := r.clients[ref.Actor]; ok {
		return findSpec(c.Inputs(), ref, "input")
	}
	return r.sampler(ref.Actor, depth)
}

func (r *typeResolver) output(ref portid.Ref, depth int) (reflect.Type, error) {
	if c, ok := r.clients[ref.Actor]; ok {
		return findSpec(c.Outputs(), ref, "output")
	}
	return r.sampler(ref.Actor, depth)
}

func (r *typeResolver) sampler(name string, depth int) (reflect.Type, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("sampler '%s' is not fed by any actor", name)
	}
	for _, l := range r.links {
		to, err := portid.Parse(l.To)
		if err != nil || to.Actor != name {
			continue
		}
		from, err := portid.Parse(l.From)
		if err != nil {
			return nil, err
		}
		return r.output(from, depth+1)
	}
	return nil, fmt.Errorf("no actor or fed sampler named '%s'", name)
}

func findSpec(specs []port.Spec, ref portid.Ref, dir string) (reflect.Type, error) {
	if !ref.HasPort() {
		if len(specs) != 1 {
			return nil, fmt.Errorf("actor '%s' has %d %s ports, the port must be named", ref.Actor, len(specs), dir)
		}
		return specs[0].Type, nil
	}
	for _, s := range specs {
		if s.Name == ref.Port {
			return s.Type, nil
		}
	}
	return nil, fmt.Errorf("actor '%s' has no %s port '%s'", ref.Actor, dir, ref.Port)
}

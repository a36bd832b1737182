// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/ctxlog"
)

func origin(r hcl.Range) string {
	return fmt.Sprintf("%s:%d", r.Filename, r.Start.Line)
}

func translateSettings(b *NetworkBlock) *config.Settings {
	s := &config.Settings{}
	if b.StrictRates != nil {
		s.StrictRates = *b.StrictRates
	}
	if b.DefaultCapacity != nil {
		s.DefaultCapacity = *b.DefaultCapacity
	}
	if b.Decimation != nil {
		s.Decimation = *b.Decimation
	}
	return s
}

// translateActor converts the HCL actor schema into the agnostic model. The
// rate defaults to 1 when omitted.
func translateActor(ctx context.Context, b *ActorBlock, evalCtx *hcl.EvalContext) (*config.Actor, error) {
	logger := ctxlog.FromContext(ctx).With("actor_type", b.Type, "actor_name", b.Name)
	logger.Debug("Translating HCL actor to internal config model.")

	args, err := evalArguments(b.Arguments, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: actor '%s': %w", origin(b.DeclRange), b.Name, err)
	}

	a := &config.Actor{
		Type:      b.Type,
		Name:      b.Name,
		Rate:      1,
		Arguments: args,
		Origin:    origin(b.DeclRange),
	}
	if b.Rate != nil {
		a.Rate = *b.Rate
	}
	if b.Horizon != nil {
		a.Horizon = *b.Horizon
	}
	return a, nil
}

func translateSampler(b *SamplerBlock) *config.Sampler {
	s := &config.Sampler{Name: b.Name, Rate: b.Rate, Origin: origin(b.DeclRange)}
	if b.Policy != nil {
		s.Policy = *b.Policy
	}
	return s
}

func translateLink(ctx context.Context, b *LinkBlock, evalCtx *hcl.EvalContext) (*config.Link, error) {
	seeds, err := evalSeeds(ctx, b.Seed, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: link %s -> %s: %w", origin(b.DeclRange), b.From, b.To, err)
	}
	l := &config.Link{
		From:     b.From,
		To:       b.To,
		Seeds:    seeds,
		Feedback: len(seeds) > 0,
		Origin:   origin(b.DeclRange),
	}
	if b.Capacity != nil {
		l.Capacity = *b.Capacity
	}
	if b.Feedback != nil {
		l.Feedback = l.Feedback || *b.Feedback
	}
	return l, nil
}

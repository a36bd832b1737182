// Package network assembles actors into a validated graph and runs it.
//
// A Builder collects actor and link declarations and checks them as a whole:
// port names and types, producer uniqueness, rates, loops and reachability.
// Rate differences on a link are bridged by inserting an adapter actor unless
// the builder is strict. The resulting Network runs every actor on its own
// goroutine until each one has terminated, either by exhausting its horizon,
// by seeing its inputs close, or by failing.
package network

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/portid"
	"github.com/vk/dosgrid/internal/sampler"
	"golang.org/x/sync/errgroup"
)

type runIDKey struct{}

// RunID returns the identifier of the run driving ctx, or "" outside a run.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

type linkInfo struct {
	From     portid.Ref
	To       portid.Ref
	Type     reflect.Type
	Capacity int
	Seeds    int
}

type actorInfo struct {
	adapter    bool
	sampler    bool
	transition sampler.Transition
}

// Network is a validated, fully wired set of actors. It can be run once.
type Network struct {
	actors []*actor.Actor
	meta   []actorInfo
	links  []linkInfo
	order  []string
	index  map[string]int
	ran    atomic.Bool
}

func newNetwork(actors []*actor.Actor, meta []actorInfo, links []linkInfo, order []string) *Network {
	index := make(map[string]int, len(actors))
	for i, a := range actors {
		index[a.Name()] = i
	}
	return &Network{actors: actors, meta: meta, links: links, order: order, index: index}
}

// Actors returns the actors in declaration order, adapters last.
func (n *Network) Actors() []*actor.Actor {
	return n.actors
}

// Actor looks an actor up by name.
func (n *Network) Actor(name string) (*actor.Actor, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.actors[i], true
}

// ActorReport is the outcome of one actor.
type ActorReport struct {
	Name        string
	Activations int64
	State       actor.State
	Adapter     bool
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Duration time.Duration
	Actors   []ActorReport
}

// Write prints the report as an aligned table.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Fprintln(tw, "ACTOR\tACTIVATIONS\tSTATE")
	for _, a := range r.Actors {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Activations, a.State)
	}
	return tw.Flush()
}

// Status returns a snapshot of every actor, in topological order. It is safe
// to call while the network runs.
func (n *Network) Status() []ActorReport {
	out := make([]ActorReport, 0, len(n.order))
	for _, name := range n.order {
		i := n.index[name]
		a := n.actors[i]
		out = append(out, ActorReport{
			Name:        a.Name(),
			Activations: a.Activations(),
			State:       a.State(),
			Adapter:     n.meta[i].adapter,
		})
	}
	return out
}

// Run starts every actor concurrently and waits until all of them have
// terminated. Cancelling ctx stops the sources; the rest of the graph then
// drains through cascading closure. A failing actor does not stop its peers.
// The first failure is returned as a *RunError, together with the report.
func (n *Network) Run(ctx context.Context) (*Report, error) {
	if !n.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	ctx = context.WithValue(ctx, runIDKey{}, id.String())
	ctx = ctxlog.With(ctx, "run_id", id.String())
	logger := ctxlog.FromContext(ctx)

	logger.Info("Network run started.", "actors", len(n.actors))
	start := time.Now()

	var g errgroup.Group
	for _, a := range n.actors {
		g.Go(func() error {
			if err := a.Run(ctx); err != nil {
				return &RunError{Actor: a.Name(), Err: err}
			}
			return nil
		})
	}
	err = g.Wait()

	report := &Report{RunID: id.String(), Duration: time.Since(start), Actors: n.Status()}
	if err != nil {
		logger.Error("Network run failed.", "error", err, "duration", report.Duration)
		return report, err
	}
	logger.Info("Network run finished.", "duration", report.Duration)
	return report, nil
}

// Describe writes a human-readable description of every actor, its rate and
// the fan-out of each of its outputs, in topological order.
func (n *Network) Describe(w io.Writer) error {
	var sb strings.Builder
	for _, name := range n.order {
		i := n.index[name]
		a, meta := n.actors[i], n.meta[i]

		fmt.Fprintf(&sb, "%s\n", a.Name())
		switch {
		case meta.adapter:
			fmt.Fprintf(&sb, " - adapter %s, rate %d -> %d\n", meta.transition, a.InRate(), a.Rate())
		case meta.sampler:
			fmt.Fprintf(&sb, " - sampler %s, rate %d -> %d\n", meta.transition, a.InRate(), a.Rate())
		default:
			fmt.Fprintf(&sb, " - rate %d", a.Rate())
			if a.Horizon() > 0 {
				fmt.Fprintf(&sb, ", horizon %d", a.Horizon())
			}
			sb.WriteString("\n")
		}
		if len(a.Inputs()) > 0 {
			fmt.Fprintf(&sb, " - inputs  #%d\n", len(a.Inputs()))
		}
		if outs := a.OutputPorts(); len(outs) > 0 {
			fanout := make([]string, len(outs))
			for p, o := range outs {
				fanout[p] = fmt.Sprint(o.Links())
			}
			fmt.Fprintf(&sb, " - outputs #%d as [%s]\n", len(outs), strings.Join(fanout, " "))
		}
		for _, l := range n.links {
			if l.From.Actor != a.Name() {
				continue
			}
			fmt.Fprintf(&sb, "   %s:%v -> %s (capacity %d", l.From.Port, l.Type, l.To, l.Capacity)
			if l.Seeds > 0 {
				fmt.Fprintf(&sb, ", seeded %d", l.Seeds)
			}
			sb.WriteString(")\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Package socketio provides a sink client that publishes every value it
// receives as a Socket.IO event.
package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments of the socketio sink.
type Args struct {
	URL                string `cty:"url"`
	Namespace          string `cty:"namespace"`
	Event              string `cty:"event"`
	Kind               string `cty:"kind"`
	Timeout            string `cty:"timeout"`
	InsecureSkipVerify bool   `cty:"insecure_skip_verify"`
}

// Sample is the payload of every emitted event.
type Sample struct {
	RunID string `json:"run_id"`
	Actor string `json:"actor"`
	Seq   int64  `json:"seq"`
	Value any    `json:"value"`
}

// Sink connects on its first activation and emits one event per value.
type Sink struct {
	name    string
	in      port.Spec
	target  *url.URL
	ns      string
	event   string
	timeout time.Duration
	tlsConf *tls.Config

	mu  sync.Mutex
	io  *socket.Socket
	seq int64
}

func (s *Sink) Inputs() []port.Spec  { return []port.Spec{s.in} }
func (s *Sink) Outputs() []port.Spec { return nil }

func (s *Sink) connect(ctx context.Context) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("client", "socketio", "url", s.target.String())

	opts := socket.DefaultOptions()
	opts.SetPath(s.target.Path)
	if s.tlsConf != nil {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(s.tlsConf)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", s.target.Scheme, s.target.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(s.ns, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.Connect()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", s.timeout)
	}
}

func (s *Sink) Compute(ctx context.Context, in actor.Frame) (actor.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.io == nil {
		io, err := s.connect(ctx)
		if err != nil {
			return nil, err
		}
		s.io = io
	}
	s.io.Emit(s.event, Sample{RunID: network.RunID(ctx), Actor: s.name, Seq: s.seq, Value: in[0]})
	s.seq++
	return nil, nil
}

// Close disconnects the client if it ever connected.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.io != nil {
		s.io.Disconnect()
		s.io = nil
	}
	return nil
}

// NewSink validates the arguments and returns an unconnected sink.
func NewSink(name string, a Args) (*Sink, error) {
	target, err := url.Parse(a.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	switch target.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme '%s'", target.Scheme)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("URL '%s' has no host", a.URL)
	}
	if a.Event == "" {
		return nil, errors.New("event must not be empty")
	}
	timeout, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", timeout)
	}
	spec, err := registry.SpecFor(a.Kind, "in")
	if err != nil {
		return nil, err
	}
	s := &Sink{
		name:    name,
		in:      spec,
		target:  target,
		ns:      a.Namespace,
		event:   a.Event,
		timeout: timeout,
	}
	if a.InsecureSkipVerify {
		s.tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	return s, nil
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	defaults := Args{Namespace: "/", Event: "sample", Kind: "float", Timeout: "10s"}
	registry.Register(r, "socketio", "emits every value as a Socket.IO event", defaults,
		func(env registry.Env, a Args) (actor.Client, error) {
			return NewSink(env.Name, a)
		})
}

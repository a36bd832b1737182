package testutil

import (
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/registry"
)

// SimpleModule registers a single client type without arguments. New is
// called once per actor of that type.
type SimpleModule struct {
	TypeName string
	New      func(env registry.Env) actor.Client
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	registry.Register(r, m.TypeName, "test client", struct{}{}, func(env registry.Env, _ struct{}) (actor.Client, error) {
		return m.New(env), nil
	})
}

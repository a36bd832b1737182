package app

import (
	"github.com/vk/dosgrid/internal/registry"
	"github.com/vk/dosgrid/modules/arith"
	"github.com/vk/dosgrid/modules/print"
	"github.com/vk/dosgrid/modules/signal"
	"github.com/vk/dosgrid/modules/socketio"
	"github.com/vk/dosgrid/modules/sqlite"
)

// coreModules is the definitive list of all client modules that are compiled
// into the dosgrid binary.
var coreModules = []registry.Module{
	&signal.Module{},
	&arith.Module{},
	&print.Module{},
	&sqlite.Module{},
	&socketio.Module{},
}

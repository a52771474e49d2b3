//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
	"github.com/zeusync/perception/internal/server"
)

func InitializeSensor(world physics.World, scene physics.Scene, owner physics.BodyID, cfg perception.Config, classifier perception.Classifier, events bus.EventBus) *perception.Sensor {
	wire.Build(ProvideLogger, ProvideSensor)
	return nil
}

func InitializeFeed(events bus.EventBus) (*server.FeedServer, error) {
	wire.Build(ProvideLogger, ProvideFeed)
	return nil, nil
}

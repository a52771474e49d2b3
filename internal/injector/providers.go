package injector

import (
	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
	"github.com/zeusync/perception/internal/server"
)

// ProvideLogger hands out the process logger built by the entrypoint.
func ProvideLogger() log.Log {
	return log.Provide()
}

// ProvideSensor builds a sensor for owner. A nil classifier or bus is left unset.
func ProvideSensor(world physics.World, scene physics.Scene, owner physics.BodyID, cfg perception.Config, classifier perception.Classifier, events bus.EventBus, logger log.Log) *perception.Sensor {
	opts := []perception.Option{
		perception.WithID(string(owner)),
		perception.WithConfig(cfg),
		perception.WithLogger(logger),
	}
	if classifier != nil {
		opts = append(opts, perception.WithClassifier(classifier))
	}
	if events != nil {
		opts = append(opts, perception.WithEvents(events))
	}
	return perception.New(world, scene, owner, opts...)
}

// ProvideFeed builds a feed server subscribed to events.
func ProvideFeed(events bus.EventBus, logger log.Log) (*server.FeedServer, error) {
	feed := server.NewFeedServer(logger)
	if _, err := feed.Attach(events); err != nil {
		return nil, err
	}
	return feed, nil
}

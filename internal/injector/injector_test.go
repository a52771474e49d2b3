package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bus "github.com/zeusync/perception/internal/core/events/bus"
	"github.com/zeusync/perception/internal/core/observability/log"
	"github.com/zeusync/perception/internal/core/perception"
	"github.com/zeusync/perception/internal/core/systems/physics"
)

func TestInitializeSensorAndFeed(t *testing.T) {
	space := physics.NewSpace()
	_, err := space.Add(physics.BodyDef{ID: "guard", Shape: physics.Sphere(0.5)})
	require.NoError(t, err)
	_, err = space.Add(physics.BodyDef{ID: "thief", Shape: physics.Sphere(0.5), Position: physics.Vec3(0, 0, 8)})
	require.NoError(t, err)

	events := bus.New()
	feed, err := InitializeFeed(events)
	require.NoError(t, err)

	catalog := perception.NewCatalog()
	catalog.Tag("thief", "enemy")
	s := InitializeSensor(space, space, "guard", perception.DefaultConfig(), catalog, events)
	assert.Equal(t, "guard", s.ID())

	s.Scan(context.Background())
	_, ok := s.FindVisibleByTag("enemy")
	assert.True(t, ok)

	snap, ok := feed.Latest("guard")
	require.True(t, ok)
	assert.Equal(t, uint64(1), snap.Seq())
}

func TestProvideSensorWithoutOptionalParts(t *testing.T) {
	space := physics.NewSpace()
	s := ProvideSensor(space, space, "ghost", perception.Config{}, nil, nil, log.Nop())
	assert.Nil(t, s.Classifier())
	assert.Equal(t, perception.MinVisionExtent, s.Config().SensorRadius)
}

package perception

import (
	"context"

	"github.com/zeusync/perception/pkg/concurrent"
)

// ScanAll ticks every sensor concurrently, at most limit at a time
// (limit <= 0 means unbounded). Sensors share the world read-only; each one
// still runs at most one tick at a time. Snapshots are returned in input
// order. The only error is ctx's.
func ScanAll(ctx context.Context, sensors []*Sensor, limit int) ([]*Snapshot, error) {
	return concurrent.Map(ctx, sensors, limit, func(ctx context.Context, s *Sensor) (*Snapshot, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.Scan(ctx), nil
	})
}

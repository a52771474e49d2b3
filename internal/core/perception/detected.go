package perception

import (
	"encoding/json"
	"time"

	"github.com/golang/geo/r3"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

// DetectedObject is one candidate found during a tick.
// Angle is in degrees [0,180], Visibility a percentage [0,100].
type DetectedObject struct {
	Target     physics.BodyID `json:"target"`
	Position   r3.Vector      `json:"position"`
	Angle      float64        `json:"angle"`
	Distance   float64        `json:"distance"`
	Visibility float64        `json:"visibility"`
}

// Seen reports whether the object meets threshold.
func (d DetectedObject) Seen(threshold float64) bool { return d.Visibility >= threshold }

// Snapshot is the immutable outcome of one detection tick.
type Snapshot struct {
	sensorID string
	seq      uint64
	at       time.Time
	eye      physics.Pose
	config   Config
	objects  []DetectedObject
}

func newSnapshot(sensorID string, seq uint64, at time.Time, eye physics.Pose, cfg Config, objects []DetectedObject) *Snapshot {
	return &Snapshot{sensorID: sensorID, seq: seq, at: at, eye: eye, config: cfg, objects: objects}
}

func emptySnapshot(sensorID string, cfg Config) *Snapshot {
	return &Snapshot{sensorID: sensorID, config: cfg}
}

func (s *Snapshot) SensorID() string { return s.sensorID }

// Seq is the tick sequence number; zero before the first tick.
func (s *Snapshot) Seq() uint64 { return s.seq }

func (s *Snapshot) Time() time.Time { return s.at }

func (s *Snapshot) Eye() physics.Pose { return s.eye }

func (s *Snapshot) Config() Config { return s.config }

func (s *Snapshot) Threshold() float64 { return s.config.VisibilityThreshold }

func (s *Snapshot) Len() int { return len(s.objects) }

// Objects returns a copy of every candidate, visible or not, in gather order.
func (s *Snapshot) Objects() []DetectedObject {
	out := make([]DetectedObject, len(s.objects))
	copy(out, s.objects)
	return out
}

type snapshotJSON struct {
	Sensor    string           `json:"sensor"`
	Seq       uint64           `json:"seq"`
	Time      time.Time        `json:"time"`
	Eye       physics.Pose     `json:"eye"`
	Threshold float64          `json:"threshold"`
	Objects   []DetectedObject `json:"objects"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	objects := s.objects
	if objects == nil {
		objects = []DetectedObject{}
	}
	return json.Marshal(snapshotJSON{
		Sensor:    s.sensorID,
		Seq:       s.seq,
		Time:      s.at,
		Eye:       s.eye,
		Threshold: s.config.VisibilityThreshold,
		Objects:   objects,
	})
}

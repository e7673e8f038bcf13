package state

import "github.com/rotatord/rotatord/internal/model"

// Document is the on-disk shape of the Rotation-State Store (spec §6.1,
// second document): job_id -> RotationState and trigger_id -> TriggerState.
type Document struct {
	Jobs     map[string]model.RotationState `yaml:"jobs"`
	Triggers map[string]model.TriggerState  `yaml:"triggers"`
}

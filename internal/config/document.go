package config

import "github.com/rotatord/rotatord/internal/model"

// Document is the full persisted configuration, serialized as YAML per
// spec §6.1. The store never exposes this type to callers directly
// (internal/config/store.go wraps it behind accessor/mutator methods) but
// it is the literal on-disk shape.
type Document struct {
	Accounts []model.Account `yaml:"accounts" validate:"dive"`
	Zones    []model.Zone    `yaml:"zones" validate:"dive"`
	Jobs     []model.Job     `yaml:"jobs" validate:"dive"`
	Triggers []model.Trigger `yaml:"triggers,omitempty"`
	Agents   []model.Agent   `yaml:"agents,omitempty"`
}

package host

import (
	"fmt"
	"os"

	"github.com/HerbHall/netbridge/pkg/models"
	"gopkg.in/yaml.v3"
)

// Script is a recorded sequence of host events, read from YAML:
//
//	steps:
//	  - observation: {connected: true, medium: wifi}
//	  - service_state: "nrState=CONNECTED"
//	  - no_connectivity: true
type Script struct {
	Steps []ScriptStep `yaml:"steps"`
}

// ScriptStep is one event of a Script. A step with ServiceState set emits a
// service-state event; any other step emits a connectivity event carrying
// Observation (nil means no active network).
type ScriptStep struct {
	Observation    *models.Observation `yaml:"observation"`
	ServiceState   string              `yaml:"service_state"`
	NoConnectivity bool                `yaml:"no_connectivity"`
}

// LoadScript reads and parses a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses YAML script data.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &s, nil
}

// Play emits every step on src in order. after, if non-nil, runs once each
// step has been delivered.
func (s *Script) Play(src *Scripted, after func(i int, step ScriptStep)) {
	for i, step := range s.Steps {
		if step.ServiceState != "" {
			src.EmitServiceState(step.ServiceState)
		} else {
			src.Emit(step.Observation, step.NoConnectivity)
		}
		if after != nil {
			after(i, step)
		}
	}
}

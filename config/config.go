// Package config loads and validates the engine configuration: the
// three-level hierarchy of endpoints → systems → agent instances, plus
// scheduled async functions. A Config is fully validated before anything is
// compiled or published; validation failures are core.ConfigError.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fabriq-ai/engine/catalog"
	"github.com/fabriq-ai/engine/core"
)

// Topology is the fixed control-flow pattern governing how agents hand off
// work within one system.
type Topology string

const (
	TopologySingle        Topology = "single"
	TopologySequential    Topology = "sequential"
	TopologyOrchestrator  Topology = "orchestrator"
	TopologyDecentralised Topology = "decentralised"
)

// FieldType is the type of an endpoint contract field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// ContractField is a typed field in an endpoint's input contract.
type ContractField struct {
	Name string    `yaml:"name" json:"name"`
	Type FieldType `yaml:"type" json:"type"`
}

// Endpoint is one callable endpoint: it references a system and defines the
// request contract plus the prompt template rendered from request data.
type Endpoint struct {
	Slug        string          `yaml:"slug" json:"slug"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	SystemID    string          `yaml:"system_id" json:"system_id"`
	Contract    []ContractField `yaml:"contract,omitempty" json:"contract,omitempty"`
	Prompt      string          `yaml:"prompt" json:"prompt"`
}

// AgentRef references an agent type within a system, with an instance prompt.
type AgentRef struct {
	Type   string `yaml:"type" json:"type"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// System is a reusable agent system with a fixed topology and an ordered list
// of agent instances.
type System struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name,omitempty" json:"name,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Topology    Topology   `yaml:"topology" json:"topology"`
	Agents      []AgentRef `yaml:"agents" json:"agents"`
}

// Frequency is the schedule frequency of an async function.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Schedule is a cron-style schedule for async functions. All times are UTC.
type Schedule struct {
	Frequency  Frequency `yaml:"frequency" json:"frequency"`
	Hour       int       `yaml:"hour" json:"hour"`
	DayOfWeek  string    `yaml:"day_of_week,omitempty" json:"day_of_week,omitempty"`
	DayOfMonth int       `yaml:"day_of_month,omitempty" json:"day_of_month,omitempty"`
}

// AsyncFunction runs a system on a schedule with a fixed prompt and no
// external caller.
type AsyncFunction struct {
	SystemID string   `yaml:"system_id" json:"system_id"`
	Prompt   string   `yaml:"prompt" json:"prompt"`
	Schedule Schedule `yaml:"schedule" json:"schedule"`
}

// Config is the top-level engine configuration.
type Config struct {
	Endpoints      []Endpoint      `yaml:"endpoints" json:"endpoints"`
	Systems        []System        `yaml:"systems" json:"systems"`
	AsyncFunctions []AsyncFunction `yaml:"async_functions,omitempty" json:"async_functions,omitempty"`

	// APIKey enables X-API-Key auth on the transport when set.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	// AllowedOrigins configures CORS; defaults to ["*"].
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.NewConfigError("invalid yaml: %v", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// System returns a system by id.
func (c *Config) System(id string) (*System, bool) {
	for i := range c.Systems {
		if c.Systems[i].ID == id {
			return &c.Systems[i], true
		}
	}
	return nil, false
}

// Endpoint returns an endpoint by slug.
func (c *Config) Endpoint(slug string) (*Endpoint, bool) {
	for i := range c.Endpoints {
		if c.Endpoints[i].Slug == slug {
			return &c.Endpoints[i], true
		}
	}
	return nil, false
}

func (c *Config) validate() error {
	systemIDs := make(map[string]struct{}, len(c.Systems))

	for _, sys := range c.Systems {
		if sys.ID == "" {
			return core.NewConfigError("system with empty id")
		}
		if _, dup := systemIDs[sys.ID]; dup {
			return core.NewConfigError("duplicate system id %q", sys.ID)
		}
		systemIDs[sys.ID] = struct{}{}

		switch sys.Topology {
		case TopologySingle, TopologySequential, TopologyOrchestrator, TopologyDecentralised:
		default:
			return core.NewConfigError("system %q has unknown topology %q", sys.ID, sys.Topology)
		}

		if len(sys.Agents) == 0 {
			return core.NewConfigError("system %q must have at least one agent", sys.ID)
		}
		for _, ref := range sys.Agents {
			if _, err := catalog.Resolve(ref.Type); err != nil {
				return core.NewConfigError("system %q: %v", sys.ID, err)
			}
		}
	}

	slugs := make(map[string]struct{}, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if ep.Slug == "" {
			return core.NewConfigError("endpoint with empty slug")
		}
		if _, dup := slugs[ep.Slug]; dup {
			return core.NewConfigError("duplicate endpoint slug %q", ep.Slug)
		}
		slugs[ep.Slug] = struct{}{}

		if _, ok := systemIDs[ep.SystemID]; !ok {
			return core.NewConfigError(
				"endpoint %q references unknown system id %q", ep.Slug, ep.SystemID)
		}
		for _, f := range ep.Contract {
			switch f.Type {
			case FieldString, FieldNumber, FieldBoolean:
			default:
				return core.NewConfigError(
					"endpoint %q: field %q has unknown type %q", ep.Slug, f.Name, f.Type)
			}
		}
	}

	for _, fn := range c.AsyncFunctions {
		if _, ok := systemIDs[fn.SystemID]; !ok {
			return core.NewConfigError(
				"async function references unknown system id %q", fn.SystemID)
		}
		if err := fn.Schedule.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (s Schedule) validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return core.NewConfigError("schedule hour %d out of range 0-23", s.Hour)
	}
	switch s.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly:
		if s.DayOfWeek == "" {
			return core.NewConfigError("day_of_week is required for weekly schedules")
		}
	case FrequencyMonthly:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return core.NewConfigError(
				"day_of_month %d out of range 1-31 for monthly schedule", s.DayOfMonth)
		}
	default:
		return core.NewConfigError("unknown schedule frequency %q", s.Frequency)
	}
	return nil
}

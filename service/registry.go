// Package service implements the static service catalog (ServiceRegistry)
// and the lifecycle state machine that drives it (ServiceSupervisor).
// ServiceRegistry's static definitions are compiled from an embedded TOML
// asset, parsed with github.com/pelletier/go-toml, a natural fit for a
// hand-maintained static service catalog.
package service

import (
	_ "embed"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

//go:embed definitions.toml
var definitionsTOML []byte

// HealthCheck describes how ServiceSupervisor verifies a running service
// is actually healthy.
type HealthCheck struct {
	Command          []string
	ExpectedExitCode int
	Timeout          time.Duration
	Interval         time.Duration
	Retries          int
}

// ServiceDefinition is one static entry in the registry: everything needed
// to start, configure, and health-check a known service.
type ServiceDefinition struct {
	Name                     string
	DisplayName              string
	Description              string
	BinaryDomain             string
	Executable               string
	Args                     []string
	Env                      map[string]string
	Dependencies             []string
	SupportsGracefulShutdown bool
	Port                     int
	HealthCheck              HealthCheck
	ConfigTemplate           string
}

type rawHealthCheck struct {
	Command          []string `toml:"command"`
	ExpectedExitCode int      `toml:"expectedExitCode"`
	Timeout          string   `toml:"timeout"`
	Interval         string   `toml:"interval"`
	Retries          int      `toml:"retries"`
}

type rawServiceDefinition struct {
	Name                     string            `toml:"name"`
	DisplayName              string            `toml:"displayName"`
	Description              string            `toml:"description"`
	BinaryDomain             string            `toml:"binaryDomain"`
	Executable               string            `toml:"executable"`
	Args                     []string          `toml:"args"`
	Env                      map[string]string `toml:"env"`
	Dependencies             []string          `toml:"dependencies"`
	SupportsGracefulShutdown bool              `toml:"supportsGracefulShutdown"`
	Port                     int               `toml:"port"`
	HealthCheck              rawHealthCheck    `toml:"healthCheck"`
	ConfigTemplate           string            `toml:"configTemplate"`
}

type rawRegistry struct {
	Services []rawServiceDefinition `toml:"services"`
}

// Registry is the read-only, process-wide set of known ServiceDefinitions.
type Registry struct {
	byName map[string]ServiceDefinition
}

// NewRegistry parses the embedded definitions.toml asset.
func NewRegistry() (*Registry, error) {
	return newRegistryFrom(definitionsTOML)
}

// newRegistryFrom parses raw TOML bytes, split out for testing against a
// fixture document without touching the embedded asset.
func newRegistryFrom(data []byte) (*Registry, error) {
	var raw rawRegistry
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing service definitions")
	}

	byName := make(map[string]ServiceDefinition, len(raw.Services))
	for _, rd := range raw.Services {
		def := ServiceDefinition{
			Name:                     rd.Name,
			DisplayName:              rd.DisplayName,
			Description:              rd.Description,
			BinaryDomain:             rd.BinaryDomain,
			Executable:               rd.Executable,
			Args:                     rd.Args,
			Env:                      rd.Env,
			Dependencies:             rd.Dependencies,
			SupportsGracefulShutdown: rd.SupportsGracefulShutdown,
			Port:                     rd.Port,
			ConfigTemplate:           rd.ConfigTemplate,
			HealthCheck: HealthCheck{
				Command:          rd.HealthCheck.Command,
				ExpectedExitCode: rd.HealthCheck.ExpectedExitCode,
				Retries:          rd.HealthCheck.Retries,
			},
		}

		if rd.HealthCheck.Timeout != "" {
			d, err := time.ParseDuration(rd.HealthCheck.Timeout)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing healthCheck.timeout for %s", rd.Name)
			}
			def.HealthCheck.Timeout = d
		}
		if rd.HealthCheck.Interval != "" {
			d, err := time.ParseDuration(rd.HealthCheck.Interval)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing healthCheck.interval for %s", rd.Name)
			}
			def.HealthCheck.Interval = d
		}

		byName[def.Name] = def
	}

	return &Registry{byName: byName}, nil
}

// Get returns the named service definition, or false if unknown.
func (r *Registry) Get(name string) (ServiceDefinition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// All returns every registered service definition, in no particular order.
func (r *Registry) All() []ServiceDefinition {
	out := make([]ServiceDefinition, 0, len(r.byName))
	for _, def := range r.byName {
		out = append(out, def)
	}
	return out
}

/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the tool's effective configuration by merging three
// layers: compiled-in defaults, an optional on-disk override file, and a
// layer derived from local system identity. Later layers win field-by-field.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.smartdc.io/fleetadm/internal/errs"
)

// Broker holds a parsed "login:password:host:port" message-broker
// connection string.
type Broker struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// ParseBroker parses a "login:password:host:port" string. A malformed
// string is a usage error at load time, not at first use.
func ParseBroker(s string) (Broker, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Broker{}, errs.Usage("config.ParseBroker", fmt.Errorf("expected login:password:host:port, got %q", s))
	}
	var port int
	if _, err := fmt.Sscanf(parts[3], "%d", &port); err != nil {
		return Broker{}, errs.Usage("config.ParseBroker", fmt.Errorf("invalid port in %q: %w", s, err))
	}
	return Broker{Login: parts[0], Password: parts[1], Host: parts[2], Port: port}, nil
}

// String formats the broker back into "login:password:host:port", the
// inverse of ParseBroker.
func (b Broker) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", b.Login, b.Password, b.Host, b.Port)
}

// Config is the effective, merged configuration consumed by every
// component. JSON tags match the on-disk override file's field names.
type Config struct {
	DCName      string            `json:"dcName"`
	DNSDomain   string            `json:"dnsDomain"`
	AdminUUID   string            `json:"adminUuid"`
	WorkDirBase string            `json:"workDirBase"`
	LockPath    string            `json:"lockPath"`
	Broker      Broker            `json:"-"`
	BrokerRaw   string            `json:"broker,omitempty"`
	Upstreams   map[string]string `json:"upstreams,omitempty"`

	PollPeriodSeconds    int `json:"pollPeriodSeconds"`
	PollMaxIterations    int `json:"pollMaxIterations"`
	PollMaxTransportErrs int `json:"pollMaxTransportErrs"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint served by fleetadm-rebooter while it drives a plan.
	MetricsAddr string `json:"metricsAddr"`
}

// SystemInfoProvider supplies the layer derived from local system identity.
// Modeled as an interface (rather than shelling out directly from Load) so
// the derivation step is fully testable without a real control host.
type SystemInfoProvider interface {
	DCName() (string, error)
	DNSDomain() (string, error)
	AdminUUID() (string, error)
}

func defaults() Config {
	return Config{
		WorkDirBase:          "/var/fleetadm",
		LockPath:             "/var/run/fleetadm.lock",
		PollPeriodSeconds:    5,
		PollMaxIterations:    720,
		PollMaxTransportErrs: 5,
		MetricsAddr:          ":9090",
	}
}

// upstreamServices is the fixed set of remote services the gateway derives
// base URLs for, following the http://<service>.<dc>.<dns-domain> pattern.
var upstreamServices = []string{"sapi", "vmapi", "cnapi", "imgapi", "wfapi", "updates"}

// Load merges the three configuration layers in order: defaults, the
// optional file at filePath, then the derived layer from sys. filePath may
// be empty or point to a nonexistent file; that is not an error.
func Load(filePath string, sys SystemInfoProvider) (Config, error) {
	cfg := defaults()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errs.Internal("config.Load", err)
			}
		} else {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, errs.Usage("config.Load", fmt.Errorf("parsing %s: %w", filePath, err))
			}
		}
	}

	if cfg.BrokerRaw != "" {
		b, err := ParseBroker(cfg.BrokerRaw)
		if err != nil {
			return Config{}, err
		}
		cfg.Broker = b
	}

	if sys != nil {
		dc, err := sys.DCName()
		if err != nil {
			return Config{}, errs.Internal("config.Load.DCName", err)
		}
		domain, err := sys.DNSDomain()
		if err != nil {
			return Config{}, errs.Internal("config.Load.DNSDomain", err)
		}
		admin, err := sys.AdminUUID()
		if err != nil {
			return Config{}, errs.Internal("config.Load.AdminUUID", err)
		}
		cfg.DCName = dc
		cfg.DNSDomain = domain
		cfg.AdminUUID = admin
	}

	if cfg.Upstreams == nil {
		cfg.Upstreams = make(map[string]string, len(upstreamServices))
	}
	for _, svc := range upstreamServices {
		if _, ok := cfg.Upstreams[svc]; ok {
			continue
		}
		if cfg.DCName == "" || cfg.DNSDomain == "" {
			continue
		}
		cfg.Upstreams[svc] = fmt.Sprintf("http://%s.%s.%s", svc, cfg.DCName, cfg.DNSDomain)
	}

	return cfg, nil
}

// UpstreamURL returns the base URL for a named upstream, or "" if unknown.
func (c Config) UpstreamURL(name string) string {
	return c.Upstreams[name]
}

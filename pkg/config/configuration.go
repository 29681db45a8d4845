// Copyright 2025 Netsort Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the netsort run configuration, loaded from a toml
// file and overridable from the command line.
package config

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/netsort/netsort/pkg/logutil"
	"github.com/netsort/netsort/pkg/partition"
)

const (
	defaultCount = 1024
	defaultProcs = 4
	defaultSeed  = 42
)

// TransportConfig selects how the process group communicates.
type TransportConfig struct {
	// Mode is "local" (every rank a goroutine in this process) or "tcp"
	// (every rank its own process).
	Mode string `toml:"mode"`
	// Rank of this process, tcp mode only.
	Rank int `toml:"rank"`
	// Addresses lists every rank's listen address in rank order, tcp mode
	// only. Its length is the process count.
	Addresses []string `toml:"addresses"`
}

// Config is the netsort run configuration.
type Config struct {
	// Count is the number of elements to sort.
	Count int `toml:"count"`
	// Procs is the process count for local mode. In tcp mode the process
	// count is len(Transport.Addresses) and this field is ignored.
	Procs int `toml:"procs"`
	// Seed for the generated input.
	Seed int64 `toml:"seed"`
	// SortWorkers is the pool size for the per-rank local sort. Zero picks
	// a size from GOMAXPROCS; 1 disables the pool.
	SortWorkers int `toml:"sort-workers"`

	Transport TransportConfig   `toml:"transport"`
	Log       logutil.LogConfig `toml:"log"`
}

// SetDefaultValues fills in everything left unset.
func (c *Config) SetDefaultValues() {
	if c.Count <= 0 {
		c.Count = defaultCount
	}
	if c.Procs <= 0 {
		c.Procs = defaultProcs
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.Transport.Mode == "" {
		c.Transport.Mode = "local"
	}
	c.Log.SetDefaultValues()
}

// Validate rejects configurations the sort cannot run under. Every problem
// found here is fatal, there is no degraded mode.
func (c *Config) Validate(ctx context.Context) error {
	switch c.Transport.Mode {
	case "local":
		if !partition.IsPowerOfTwo(c.Procs) {
			return nserr.NewBadConfig(ctx, "process count %d is not a power of two", c.Procs)
		}
	case "tcp":
		procs := len(c.Transport.Addresses)
		if !partition.IsPowerOfTwo(procs) {
			return nserr.NewBadConfig(ctx, "process count %d is not a power of two", procs)
		}
		if c.Transport.Rank < 0 || c.Transport.Rank >= procs {
			return nserr.NewRankOutOfRange(ctx, c.Transport.Rank, procs)
		}
	default:
		return nserr.NewBadConfig(ctx, "unknown transport mode %q", c.Transport.Mode)
	}
	if c.Count <= 0 {
		return nserr.NewBadConfig(ctx, "element count %d must be positive", c.Count)
	}
	if c.SortWorkers < 0 {
		return nserr.NewBadConfig(ctx, "sort worker count %d must not be negative", c.SortWorkers)
	}
	return nil
}

// ParseFromFile loads cfg from a toml file, then applies defaults.
func ParseFromFile(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, nserr.NewBadConfig(ctx, "parse config file %s: %v", path, err)
	}
	cfg.SetDefaultValues()
	return &cfg, nil
}

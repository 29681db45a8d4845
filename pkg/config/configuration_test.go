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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultValues(t *testing.T) {
	var cfg Config
	cfg.SetDefaultValues()

	assert.Equal(t, 1024, cfg.Count)
	assert.Equal(t, 4, cfg.Procs)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "local", cfg.Transport.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSetDefaultValuesKeepsExplicit(t *testing.T) {
	cfg := Config{Count: 8, Procs: 2, Seed: 7}
	cfg.SetDefaultValues()

	assert.Equal(t, 8, cfg.Count)
	assert.Equal(t, 2, cfg.Procs)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*Config)
		code uint16
	}{
		{"default ok", func(c *Config) {}, 0},
		{"procs not power of two", func(c *Config) { c.Procs = 3 }, nserr.ErrBadConfig},
		{"bad mode", func(c *Config) { c.Transport.Mode = "udp" }, nserr.ErrBadConfig},
		{"negative workers", func(c *Config) { c.SortWorkers = -1 }, nserr.ErrBadConfig},
		{"tcp without addresses", func(c *Config) { c.Transport.Mode = "tcp" }, nserr.ErrBadConfig},
		{"tcp three addresses", func(c *Config) {
			c.Transport.Mode = "tcp"
			c.Transport.Addresses = []string{"a", "b", "c"}
		}, nserr.ErrBadConfig},
		{"tcp rank out of range", func(c *Config) {
			c.Transport.Mode = "tcp"
			c.Transport.Addresses = []string{"a", "b"}
			c.Transport.Rank = 2
		}, nserr.ErrRankOutOfRange},
		{"tcp ok", func(c *Config) {
			c.Transport.Mode = "tcp"
			c.Transport.Addresses = []string{"a", "b"}
			c.Transport.Rank = 1
		}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var cfg Config
			cfg.SetDefaultValues()
			c.mut(&cfg)
			err := cfg.Validate(ctx)
			if c.code == 0 {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, nserr.IsNSErrCode(err, c.code))
			}
		})
	}
}

func TestParseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsort.toml")
	data := `
count = 2048
procs = 8
seed = 99

[transport]
mode = "tcp"
rank = 1
addresses = ["127.0.0.1:7001", "127.0.0.1:7002"]

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := ParseFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Count)
	assert.Equal(t, 8, cfg.Procs)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "tcp", cfg.Transport.Mode)
	assert.Equal(t, 1, cfg.Transport.Rank)
	assert.Len(t, cfg.Transport.Addresses, 2)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseFromFileMissing(t *testing.T) {
	_, err := ParseFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrBadConfig))
}

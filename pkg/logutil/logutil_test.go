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

package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogConfigDefaults(t *testing.T) {
	cfg := LogConfig{}
	cfg.SetDefaultValues()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, 512, cfg.MaxSize)

	cfg = LogConfig{Level: "debug", Format: "json", MaxSize: 64}
	cfg.SetDefaultValues()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 64, cfg.MaxSize)
}

func TestGetLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"no-such-level", zapcore.InfoLevel},
	}
	for _, c := range cases {
		got := getLevel(&LogConfig{Level: c.in})
		assert.Equal(t, c.want, got.Level(), "level %q", c.in)
	}
}

func TestGetGlobalLogger(t *testing.T) {
	require.NotNil(t, GetGlobalLogger())

	SetupNSLogger(&LogConfig{Level: "debug", Format: "json"})
	l := GetGlobalLogger()
	require.NotNil(t, l)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

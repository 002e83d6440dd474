package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HerbHall/netbridge/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyCmd(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--medium", "wifi"}, "wifi"},
		{[]string{"--medium", "mobile", "--subtype-id", "13"}, "4g"},
		{[]string{"--medium", "mobile", "--subtype-id", "13", "--nr"}, "5g"},
		{[]string{"--medium", "mobile", "--subtype-name", "HSPA"}, "3g"},
		{[]string{"--medium", "wifi", "--connected=false"}, "none"},
		{[]string{"--medium", "bluetooth"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, append([]string{"classify"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}

	_, err := run(t, "classify")
	assert.ErrorContains(t, err, "--medium")
}

func TestChannelCmd(t *testing.T) {
	out, err := run(t, "channel", "2437")
	require.NoError(t, err)
	assert.Equal(t, "channel 6 (2.4GHz)", strings.TrimSpace(out))

	_, err = run(t, "channel", "1234")
	assert.ErrorContains(t, err, "no channel")

	_, err = run(t, "channel", "abc")
	assert.ErrorContains(t, err, "invalid frequency")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "netbridge "), out)
}

const wifiScript = `
steps:
  - no_connectivity: true
  - observation: {connected: true, medium: wifi}
  - observation: {connected: true, medium: wifi}
`

func TestReplay(t *testing.T) {
	script, err := host.ParseScript([]byte(wifiScript))
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := replay(context.Background(), script, &out, zaptest.NewLogger(t))
	require.NoError(t, err)

	var basic []string
	var records int
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		records++
		var rec struct {
			Step    int             `json:"step"`
			Variant string          `json:"variant"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec.Variant != "netinfo" {
			continue
		}
		var p struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(rec.Payload, &p))
		basic = append(basic, p.Type)
	}
	assert.Equal(t, n, records)

	// Start reports none; the repeated wifi observation is suppressed.
	assert.Equal(t, []string{"none", "wifi"}, basic)
}

func TestReplayCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(wifiScript), 0o600))

	out, err := run(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"variant":"netinfo"`)
	assert.Contains(t, out, `"variant":"netmanager"`)

	_, err = run(t, "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

//go:build linux

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() benchConfig {
	cfg := defaultBenchConfig()
	cfg.iterations = 5
	cfg.warmup = 1
	cfg.burst = 50
	return cfg
}

func TestDefaultBenchConfig(t *testing.T) {
	cfg := defaultBenchConfig()
	assert.Equal(t, 100, cfg.iterations)
	assert.Equal(t, 10, cfg.warmup)
	assert.Equal(t, 1000, cfg.burst)
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "wakerbench", cmd.Use)
	assert.False(t, cmd.HasAvailableFlags())
}

func TestRootCmd_rejectsArgs(t *testing.T) {
	cmd := newRootCmd(smallConfig())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"unexpected"})
	assert.Error(t, cmd.Execute())
	assert.Empty(t, out.String())
}

func TestRootCmd_run(t *testing.T) {
	cmd := newRootCmd(smallConfig())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	report := out.String()
	for _, want := range []string{
		"Wakeup Latency Benchmark",
		"warming up FD-based (no lock)",
		"running Executor bridge",
		"Results",
		"Summary",
		"Enqueue callback (lock)",
		"Burst throughput",
		`Execution lock "global"`,
	} {
		assert.Contains(t, report, want)
	}
	assert.Less(t, strings.Index(report, "running Executor bridge"), strings.Index(report, "Results"))
}

func TestRun_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	err := run(ctx, smallConfig(), &out, &errOut)
	require.Error(t, err)
	assert.NotContains(t, out.String(), "Results")
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(t.Context()), out.String())
	return out.String()
}

func TestDemo(t *testing.T) {
	for _, args := range [][]string{
		{"demo", "--log-level", "warn"},
		{"demo", "--log-level", "warn", "--scheduled"},
		{"demo", "--log-level", "warn", "--codec", "cbor", "--compress", "1"},
		{"demo", "--log-level", "warn", "--codec", "json", "--realm", "demo"},
	} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			out := executeCommand(t, args...)
			require.Contains(t, out, "cross-peer: received [7 3131 88555]")
			require.Contains(t, out, "typed order: received [foo bar baz]")
		})
	}
}

func TestBench(t *testing.T) {
	out := executeCommand(t, "bench", "--log-level", "warn", "-n", "1000", "-b", "500", "--contexts", "4", "--scheduled")
	require.Contains(t, out, "messages: 1000")
	require.Contains(t, out, "received: 1000")

	out = executeCommand(t, "bench", "--log-level", "warn", "-n", "200", "--size", "4096", "--compress", "1024")
	require.Contains(t, out, "received: 200")
}

func TestUnknownTransport(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"demo", "--transport", "carrier-pigeon"})
	require.ErrorContains(t, cmd.ExecuteContext(t.Context()), "unknown transport")
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("MBOX_MAILBOX_CODEC", "cbor")
	t.Setenv("MBOX_MAILBOX_REPORT_UNREACHABLE", "true")
	t.Setenv("MBOX_NODE_NAME", "env-node")

	v := viper.New()
	require.NoError(t, initConfig(v))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "cbor", cfg.App.Mailbox.Codec)
	require.True(t, cfg.App.Mailbox.ReportUnreachable)
	require.Equal(t, "env-node", cfg.App.Node.Name)
	require.Equal(t, "memory", cfg.Transport)
}

func TestConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport: nats
nats:
  url: nats://example:4222
  prefix: test
mailbox:
  realm: blue
  compress_threshold: 512
  context_buffer_size: 8
`), 0o600))

	v := viper.New()
	v.Set("config", path)
	require.NoError(t, initConfig(v))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, "nats", cfg.Transport)
	require.Equal(t, "nats://example:4222", cfg.NATS.URL)
	require.Equal(t, "test", cfg.NATS.Prefix)
	require.Equal(t, "blue", cfg.App.Mailbox.Realm)
	require.Equal(t, 512, cfg.App.Mailbox.CompressThreshold)
	require.Equal(t, 8, cfg.App.Mailbox.ContextBufferSize)
	require.Equal(t, "msgpack", cfg.App.Mailbox.Codec)
}

func TestConfig_MissingFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, initConfig(v))
}

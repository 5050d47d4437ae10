package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codewandler/mbox-go/core/app"
)

type config struct {
	App       app.Config `mapstructure:",squash"`
	Transport string     `mapstructure:"transport"`
	NATS      struct {
		URL    string `mapstructure:"url"`
		Prefix string `mapstructure:"prefix"`
	} `mapstructure:"nats"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transport", "memory")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.prefix", "mbox")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("node.name", "")
	v.SetDefault("node.id", "")
	v.SetDefault("mailbox.realm", "")
	v.SetDefault("mailbox.codec", "msgpack")
	v.SetDefault("mailbox.compress_threshold", 0)
	v.SetDefault("mailbox.report_unreachable", false)
	v.SetDefault("mailbox.context_buffer_size", 64)
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "mbox",
		Short: "Addressable mailboxes across cluster nodes",
		Long: `mbox runs mailbox nodes on an in-memory or NATS transport.
The demo command shows cross-node delivery, bench measures throughput.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is ./mbox.yaml)")
	flags.String("transport", "memory", "transport: memory or nats")
	flags.String("nats-url", "nats://127.0.0.1:4222", "NATS server url")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("realm", "", "mailbox realm")
	flags.String("codec", "msgpack", "argument codec: msgpack, json or cbor")
	flags.Int("compress", 0, "zstd-compress payloads of at least this many bytes (0 disables)")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("transport", flags.Lookup("transport"))
	_ = v.BindPFlag("nats.url", flags.Lookup("nats-url"))
	_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("mailbox.realm", flags.Lookup("realm"))
	_ = v.BindPFlag("mailbox.codec", flags.Lookup("codec"))
	_ = v.BindPFlag("mailbox.compress_threshold", flags.Lookup("compress"))

	rootCmd.AddCommand(newDemoCmd(v), newBenchCmd(v))
	return rootCmd
}

func initConfig(v *viper.Viper) error {
	setDefaults(v)

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MBOX")
	// MBOX_MAILBOX_CODEC for mailbox.codec
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (config, error) {
	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

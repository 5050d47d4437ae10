package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codewandler/mbox-go/core/mailbox"
)

type benchOptions struct {
	N         int
	BatchSize int
	Size      int
	Scheduled bool
	Contexts  int
}

func newBenchCmd(v *viper.Viper) *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure mailbox throughput between two nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			e, err := newEnv(cmd.Context(), cfg, 2)
			if err != nil {
				return err
			}
			defer e.Close()

			return runBench(cmd, e, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.N, "num", "n", 50_000, "number of messages")
	flags.IntVarP(&opts.BatchSize, "batch", "b", 10_000, "report progress every batch messages")
	flags.IntVar(&opts.Size, "size", 64, "payload size in bytes")
	flags.BoolVar(&opts.Scheduled, "scheduled", false, "run callbacks on the executor instead of inline")
	flags.IntVar(&opts.Contexts, "contexts", 1, "number of receiving mailboxes, each on its own execution context")
	return cmd
}

func runBench(cmd *cobra.Command, e *env, opts benchOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	sender, receiver := e.apps[0].Manager(), e.apps[1].Manager()

	if opts.N <= 0 {
		return fmt.Errorf("num must be positive")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = opts.N
	}
	if opts.Contexts <= 0 {
		opts.Contexts = 1
	}

	var received atomic.Int64
	targets := make([]mailbox.Addr1[string], opts.Contexts)
	for i := range targets {
		mode := mailbox.Inline
		if opts.Scheduled {
			mode = mailbox.Scheduled(i)
		}
		mb := mailbox.New1(receiver, func(string) { received.Add(1) }, mode)
		defer mb.Close()
		targets[i] = mb.Address()
	}

	payload := strings.Repeat("x", opts.Size)

	fmt.Fprintf(out, "transport: %s, messages: %d, size: %d, mode: %s\n",
		transportName(e), opts.N, opts.Size, modeName(opts.Scheduled))

	start := time.Now()
	batchStart := start
	for i := 0; i < opts.N; i++ {
		if err := mailbox.Send1(ctx, sender, targets[i%len(targets)], payload); err != nil {
			return fmt.Errorf("send %d: %w", i, err)
		}
		if (i+1)%opts.BatchSize == 0 {
			took := time.Since(batchStart)
			mu := getMemUsage()
			fmt.Fprintf(out, " | %7d sent | %6d ms | %8d msgs/s | (%d / %d) MiB mem (sys) |\n",
				i+1, took.Milliseconds(), int(float64(opts.BatchSize)/took.Seconds()), mu.Alloc/1024/1024, mu.Sys/1024/1024)
			batchStart = time.Now()
		}
	}

	if err := settle(ctx, func() bool { return received.Load() == int64(opts.N) }); err != nil {
		return fmt.Errorf("received %d of %d: %w", received.Load(), opts.N, err)
	}
	took := time.Since(start)
	mu := getMemUsage()
	fmt.Fprintf(out, "total runtime: %.3f seconds\n", took.Seconds())
	fmt.Fprintf(out, "     received: %d\n", received.Load())
	fmt.Fprintf(out, "   avg. msg/s: %d\n", int(float64(opts.N)/took.Seconds()))
	fmt.Fprintf(out, "   avg. MiB/s: %.2f\n", float64(opts.N*opts.Size)/took.Seconds()/1024/1024)
	fmt.Fprintf(out, "      gc runs: %d\n", mu.NumGC)
	return nil
}

func transportName(e *env) string {
	if e.transport == "" {
		return "memory"
	}
	return e.transport
}

func modeName(scheduled bool) string {
	if scheduled {
		return "scheduled"
	}
	return "inline"
}

package main

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codewandler/mbox-go/core/mailbox"
)

func newDemoCmd(v *viper.Viper) *cobra.Command {
	var scheduled bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Pass a mailbox address between two nodes and send to it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := newEnv(ctx, cfg, 2)
			if err != nil {
				return err
			}
			defer e.Close()

			mode := mailbox.Inline
			if scheduled {
				mode = mailbox.Scheduled(0)
			}

			out := cmd.OutOrStdout()
			a, b := e.apps[0].Manager(), e.apps[1].Manager()

			got, err := crossPeer(ctx, a, b, mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cross-peer: received %v\n", got)

			order, err := typedOrder(ctx, a, b, mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "typed order: received %v\n", order)
			return nil
		},
	}

	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "run callbacks on the executor instead of inline")
	return cmd
}

// crossPeer creates a mailbox on a, hands its address to b and lets
// both nodes send to it.
func crossPeer(ctx context.Context, a, b *mailbox.Manager, mode mailbox.CallbackMode) ([]int, error) {
	var (
		mu  sync.Mutex
		got []int
	)
	target := mailbox.New1(a, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, mode)
	defer target.Close()

	relayed := make(chan error, 1)
	relay := mailbox.New1(b, func(to mailbox.Addr1[int]) {
		err := mailbox.Send1(ctx, b, to, 88555)
		if err == nil {
			err = mailbox.Send1(ctx, b, to, 3131)
		}
		relayed <- err
	}, mailbox.Inline)
	defer relay.Close()

	if err := mailbox.Send1(ctx, a, relay.Address(), target.Address()); err != nil {
		return nil, err
	}
	if err := mailbox.Send1(ctx, a, target.Address(), 7); err != nil {
		return nil, err
	}

	select {
	case err := <-relayed:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	err := settle(ctx, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	res := slices.Clone(got)
	slices.Sort(res)
	return res, err
}

// typedOrder sends three strings from b to a mailbox on a.
func typedOrder(ctx context.Context, a, b *mailbox.Manager, mode mailbox.CallbackMode) ([]string, error) {
	var (
		mu  sync.Mutex
		got []string
	)
	mb := mailbox.New1(a, func(s string) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}, mode)
	defer mb.Close()

	for _, s := range []string{"foo", "bar", "baz"} {
		if err := mailbox.Send1(ctx, b, mb.Address(), s); err != nil {
			return nil, err
		}
	}

	err := settle(ctx, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	return slices.Clone(got), err
}

func settle(ctx context.Context, done func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for !done() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("delivery did not settle: %w", ctx.Err())
		case <-tick.C:
		}
	}
	return nil
}

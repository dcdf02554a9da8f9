package main

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/yueyoum/coro"
	"github.com/yueyoum/coro/internal/config"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Feed a queue from a producer task and drain it in a consumer task",
		Long: "A producer puts demo.items values on a queue, sleeping demo.delay before each. " +
			"A consumer sums them and sets an event that a reporter waits on.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := newInjector(cmd)
			if err != nil {
				return err
			}

			cfg := do.MustInvoke[*config.Config](i)
			s := do.MustInvoke[*coro.Scheduler](i)
			out := cmd.OutOrStdout()

			q := coro.NewQueue[int](s)
			done := coro.NewEvent(s)
			sum := 0

			s.Spawn("reporter", func(co *coro.Coroutine) {
				done.Wait()
				fmt.Fprintln(out, "sum", sum)
			})

			s.Spawn("consumer", func(co *coro.Coroutine) {
				for {
					v := q.Get()
					if v < 0 {
						break
					}
					fmt.Fprintln(out, "got", v)
					sum += v
				}
				done.Set()
			})

			s.Spawn("producer", func(co *coro.Coroutine) {
				for v := 1; v <= cfg.Demo.Items; v++ {
					if err := co.Sleep(time.Duration(cfg.Demo.Delay)); err != nil {
						break
					}
					q.Put(v)
				}
				q.Put(-1)
			})

			return runScheduler(cmd, i)
		},
	}
}

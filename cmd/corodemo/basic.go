package main

import (
	"fmt"
	"time"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/yueyoum/coro"
	"github.com/yueyoum/coro/internal/config"
)

func newBasicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "basic",
		Short: "Yield in one task while another waits for an event",
		Long: "Task one yields once and finishes. Task two waits on an event that the " +
			"reactor sets after demo.delay.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := newInjector(cmd)
			if err != nil {
				return err
			}

			cfg := do.MustInvoke[*config.Config](i)
			s := do.MustInvoke[*coro.Scheduler](i)
			out := cmd.OutOrStdout()

			ev := coro.NewEvent(s)

			s.Spawn("one", func(co *coro.Coroutine) {
				fmt.Fprintln(out, "one: yield")
				co.Yield()
				fmt.Fprintln(out, "one: done")
			})

			s.Spawn("two", func(co *coro.Coroutine) {
				fmt.Fprintln(out, "two: wait")
				ev.Wait()
				fmt.Fprintln(out, "two: done")
			})

			s.Loop().AfterFunc(time.Duration(cfg.Demo.Delay), func(err error) {
				if err != nil {
					return
				}
				fmt.Fprintln(out, "main: set")
				ev.Set()
			})

			return runScheduler(cmd, i)
		},
	}
}

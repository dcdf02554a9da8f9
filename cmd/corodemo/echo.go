package main

import (
	"fmt"
	"net"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yueyoum/coro"
	"github.com/yueyoum/coro/echo"
	"github.com/yueyoum/coro/internal/config"
)

func newEchoCmd() *cobra.Command {
	var addr string

	echoCmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a TCP echo server",
		Long:  "Serve TCP connections on echo.addr, one task per connection, until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := newInjector(cmd)
			if err != nil {
				return err
			}

			cfg := do.MustInvoke[*config.Config](i)
			if addr != "" {
				cfg.Echo.Addr = addr
			}

			ln, err := net.Listen("tcp", cfg.Echo.Addr)
			if err != nil {
				return fmt.Errorf("echo: %w", err)
			}

			s := do.MustInvoke[*coro.Scheduler](i)
			do.MustInvoke[*zap.Logger](i).Info("echo server", zap.Stringer("addr", ln.Addr()))
			fmt.Fprintln(cmd.OutOrStdout(), "listening on", ln.Addr())

			srv := echo.NewServer(s, ln, echo.EchoHandler)
			err = serve(cmd, i, srv.Serve)
			do.MustInvoke[*zap.Logger](i).Info("echo server stopped", zap.Int("served", srv.Served()))
			return err
		},
	}

	echoCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address, overrides echo.addr")
	return echoCmd
}

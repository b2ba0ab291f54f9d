package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"arlo/internal/agent/ports"
	"arlo/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP with a websocket event feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			hub := server.NewHub(nil)
			rt, err := buildRuntime(runtimeOptions{
				listeners: []ports.EventListener{hub},
			})
			if err != nil {
				return err
			}

			addr := fmt.Sprintf("%s:%d", rt.cfg.Server.Host, rt.cfg.Server.Port)
			srv, err := server.New(server.Config{
				Addr:    addr,
				Runner:  rt.coordinator,
				Broker:  rt.broker,
				Store:   rt.store,
				Hub:     hub,
				Metrics: rt.metrics,
				Logger:  rt.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}

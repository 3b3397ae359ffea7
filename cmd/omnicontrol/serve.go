package main

import (
	"context"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go-omnicontrol/internal/api"
	"go-omnicontrol/internal/desktop/robot"
	"go-omnicontrol/internal/service"
	"golang.org/x/sync/errgroup"
	"time"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().String("addr", "", "listen address, overrides server.addr")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	svc, err := service.New(ctx, a.cfg, service.Components{Display: robot.New()})
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	server := api.New(svc.Root, svc.Session, a.cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	err = g.Wait()
	log.Info().Msg("server exiting")
	return err
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"commentator/internal/api"
	"commentator/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface for live commentary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.API.Bind = bind
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			factory := func(c context.Context) (api.Session, error) {
				sess, err := rt.newSession(c)
				if err != nil {
					return nil, err
				}
				return sess, nil
			}
			srv := api.New(api.Options{Bind: cfg.API.Bind, Token: cfg.API.Token}, factory, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			<-runCtx.Done()
			srv.Stop()
			logger.Info("commentator stopped", logging.String("address", srv.Addr()))
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override the configured listen address")
	return cmd
}

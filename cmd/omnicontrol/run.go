package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"go-omnicontrol/internal/desktop/robot"
	"go-omnicontrol/internal/service"
	"go-omnicontrol/pkg/models"
	"strings"
	"time"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <objective>",
		Short: "Run one objective to completion, printing the event log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := service.New(ctx, a.cfg, service.Components{Display: robot.New()})
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			status, err := svc.Run(ctx, strings.Join(args, " "), cmd.OutOrStdout(), 100*time.Millisecond)
			if err != nil {
				if ctx.Err() != nil {
					return &exitError{code: 130, err: err}
				}
				return err
			}
			return outcome(status)
		},
	}
}

func outcome(status models.Status) error {
	if status.State == models.Completed {
		return nil
	}
	msg := string(status.State)
	if status.Err != nil {
		msg = fmt.Sprintf("%s: %s", status.Err.Category, status.Err.Message)
	}
	return &exitError{code: 2, err: fmt.Errorf("objective not completed: %s", msg)}
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage widget and missed chat settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reset-timer",
		Short: "Restore the default 0h5m0s missed chat threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			svc := service.NewSettingsService(service.SettingsDependencies{
				SettingsRepo: rt.store.Settings,
				Redis:        rt.redis.Handle(),
				CacheTTL:     rt.cfg.Settings.CacheTTL(),
				Logger:       rt.logger,
			})
			settings, err := svc.ResetMissedChatTimer(cmd.Context())
			if err != nil {
				return err
			}
			t := settings.MissedChatTimer
			fmt.Fprintf(cmd.OutOrStdout(), "missed chat timer reset to %dh%dm%ds\n", t.Hours, t.Minutes, t.Seconds)
			return nil
		},
	})
	return cmd
}

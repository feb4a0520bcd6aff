package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/prefs"
	"github.com/five82/lector/internal/ui"
)

func newEndpointCommand(e *env) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Show which service endpoint is in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.connect(cmd.Context(), func(client *app.Client) error {
				out := cmd.OutOrStdout()
				current := client.Endpoint()
				if probe {
					current = client.Reconnect(cmd.Context())
				}
				headerColor.Fprintln(out, current)
				if client.Resolver.Current() == "" {
					mutedColor.Fprintln(out, "same origin, no probing")
					return nil
				}
				for _, candidate := range client.Resolver.Candidates() {
					marker := "  "
					if candidate == current {
						marker = "* "
					}
					fmt.Fprintln(out, marker+candidate)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "probe the candidates again before answering")
	return cmd
}

func newTUICommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive interface (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, e)
		},
	}
}

func runTUI(cmd *cobra.Command, e *env) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	return e.connect(ctx, func(client *app.Client) error {
		app.StartPoller(ctx, client, e.cfg.PollInterval)
		userPrefs, _ := prefs.Load("")
		return ui.Run(ui.Options{
			Context: ctx,
			Client:  client,
			LogPath: e.cfg.LogPath(),
			Prefs:   userPrefs,
		})
	})
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/results"
	"github.com/five82/lector/internal/transport"
)

func newSubmitCommand(e *env) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "submit FILE...",
		Short: "Extract text from PNG, JPEG or PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.connectUser(cmd.Context(), func(client *app.Client) error {
				out := cmd.OutOrStdout()
				for i, path := range args {
					file, err := results.LoadFile(path, client.Results.Limits().MaxBytes)
					if err != nil {
						return fail(transport.Message(err, "Could not read "+path), err)
					}
					result, err := client.Results.Submit(cmd.Context(), file)
					if err != nil {
						return fail(fmt.Sprintf("%s: %s", path, client.Results.Snapshot().LastError), err)
					}
					if quiet {
						fmt.Fprintln(out, result.ID)
						continue
					}
					if i > 0 {
						fmt.Fprintln(out)
					}
					printResult(out, result)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the new result ids")
	return cmd
}

func newListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List extraction results, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.connectUser(cmd.Context(), func(client *app.Client) error {
				items, err := client.Results.List(cmd.Context())
				if err != nil {
					return fail(client.Results.Snapshot().LastError, err)
				}
				printResults(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
}

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the full text of one result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.connectUser(cmd.Context(), func(client *app.Client) error {
				result, err := client.Results.FetchOne(cmd.Context(), args[0])
				if err != nil {
					return fail(client.Results.Snapshot().LastError, err)
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete results",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.connectUser(cmd.Context(), func(client *app.Client) error {
				for _, id := range args {
					if err := client.Results.DeleteOne(cmd.Context(), id); err != nil {
						return fail(fmt.Sprintf("%s: %s", id, client.Results.Snapshot().LastError), err)
					}
					printSuccess(cmd.OutOrStdout(), "Deleted result %s", id)
				}
				return nil
			})
		},
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/ocrapi"
	"github.com/five82/lector/internal/prefs"
)

func newLoginCommand(e *env) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)
			if username == "" {
				saved, _ := prefs.Load("")
				label := "Username"
				if saved.LastUsername != "" {
					label += " [" + saved.LastUsername + "]"
				}
				answer, err := p.line(label)
				if err != nil {
					return err
				}
				username = answer
				if username == "" {
					username = saved.LastUsername
				}
			}
			password, err := p.secret("Password")
			if err != nil {
				return err
			}

			return e.connect(cmd.Context(), func(client *app.Client) error {
				if err := client.Session.Login(cmd.Context(), username, password); err != nil {
					return fail(client.Session.Snapshot().LastError, err)
				}
				name := client.Session.Snapshot().Username()
				rememberUser(name)
				printSuccess(cmd.OutOrStdout(), "Logged in as %s", name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when omitted)")
	return cmd
}

func rememberUser(name string) {
	p, err := prefs.Load("")
	if err != nil {
		return
	}
	p.LastUsername = name
	_ = prefs.Save("", p)
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget its cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.connect(cmd.Context(), func(client *app.Client) error {
				if !client.Session.Snapshot().Authenticated() {
					mutedColor.Fprintln(cmd.OutOrStdout(), "Not logged in.")
					return nil
				}
				if err := client.Logout(cmd.Context()); err != nil {
					// The session is gone locally either way.
					return fail(client.Session.Snapshot().LastError, err)
				}
				printSuccess(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.connectUser(cmd.Context(), func(client *app.Client) error {
				out := cmd.OutOrStdout()
				headerColor.Fprintln(out, client.Session.Snapshot().Username())
				mutedColor.Fprintf(out, "at %s\n", client.Endpoint())
				return nil
			})
		},
	}
}

func newRegisterCommand(e *env) *cobra.Command {
	var reg ocrapi.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)
			var err error
			if reg.Username == "" {
				if reg.Username, err = p.line("Username"); err != nil {
					return err
				}
			}
			if reg.Email == "" {
				if reg.Email, err = p.line("Email"); err != nil {
					return err
				}
			}
			if reg.Password, err = p.secret("Password"); err != nil {
				return err
			}
			if reg.Password2, err = p.secret("Repeat password"); err != nil {
				return err
			}

			return e.connect(cmd.Context(), func(client *app.Client) error {
				if err := client.Session.Register(cmd.Context(), reg); err != nil {
					return fail(client.Session.Snapshot().LastError, err)
				}
				printSuccess(cmd.OutOrStdout(), "Registered %s. Run `lector login` to start a session.", reg.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "username (prompted when omitted)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address (prompted when omitted)")
	return cmd
}

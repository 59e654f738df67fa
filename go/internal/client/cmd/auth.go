package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/presence/go/internal/client"
	"github.com/mcdev12/presence/go/internal/users"
)

func newSignUpCmd(cli *cliContext) *cobra.Command {
	var req users.SignUpRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := cli.api()
			if _, err := api.SignUp(cmd.Context(), req); err != nil {
				return err
			}
			return cli.doLogIn(cmd, req.Email, req.Password)
		},
	}
	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)
	fs.StringVar(&req.Email, "email", "", "account email (env: PRESENCE_EMAIL)")
	fs.StringVar(&req.Password, "password", "", "account password, at least 6 characters (env: PRESENCE_PASSWORD)")
	fs.StringVar(&req.Username, "username", "", "name shown above your avatar (env: PRESENCE_USERNAME)")
	fs.StringVar(&req.Color, "color", "", "avatar colour, #rgb, #rrggbb or a colour name (env: PRESENCE_COLOR)")
	return cmd
}

func newLogInCmd(cli *cliContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.doLogIn(cmd, email, password)
		},
	}
	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)
	fs.StringVar(&email, "email", "", "account email (env: PRESENCE_EMAIL)")
	fs.StringVar(&password, "password", "", "account password (env: PRESENCE_PASSWORD)")
	return cmd
}

func (cli *cliContext) doLogIn(cmd *cobra.Command, email, password string) error {
	resp, err := cli.api().LogIn(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	creds := client.Credentials{
		Token:       resp.Token,
		UserID:      resp.User.ID.String(),
		Email:       resp.User.Email,
		DisplayName: resp.User.DisplayName,
		Color:       resp.User.Color,
		APIURL:      cli.apiURL,
		SavedAt:     time.Now(),
	}
	if err := cli.creds.Save(creds); err != nil {
		return err
	}
	cli.current = &creds
	log.Info().Str("user_id", creds.UserID).Msg("logged in")
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", creds.DisplayName)
	return nil
}

func newLogOutCmd(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cli.login(); errors.Is(err, client.ErrNotLoggedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			// The local session is cleared even if the server cannot be reached
			if err := cli.api().LogOut(cmd.Context()); err != nil {
				log.Warn().Err(err).Msg("server logout failed")
			}
			if err := cli.creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoAmICmd(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cli.login(); err != nil {
				return err
			}
			me, err := cli.api().Me(cmd.Context())
			if err != nil {
				return err
			}
			color := me.Color
			if color == "" {
				color = cli.tuning.ColorFor(me.ID.String()) + " (assigned)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:  %s\n", me.DisplayName)
			fmt.Fprintf(out, "Email: %s\n", me.Email)
			fmt.Fprintf(out, "ID:    %s\n", me.ID)
			fmt.Fprintf(out, "Color: %s\n", color)
			return nil
		},
	}
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/affiliateplus/storefront/pkg/cli"
	"github.com/affiliateplus/storefront/storefront/internal/config"
	"github.com/affiliateplus/storefront/storefront/internal/payments"
	"github.com/affiliateplus/storefront/storefront/internal/session"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the payments backend and save the session",
		RunE:  runLogin,
	}
	cmd.Flags().StringP("email", "e", "", "account email (prompted when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(cmd, nil))
			if err != nil {
				return err
			}
			if err := session.ClearToken(cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath(cmd, nil))
	if err != nil {
		return err
	}

	p := cli.DefaultPrompter()
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = p.AskRequired("Email")
	}
	password := p.AskPassword("Password")
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := payments.NewClient(cfg.Server, "", logger)
	if err != nil {
		return err
	}
	resp, err := client.Login(contextOf(cmd), email, password)
	if err != nil {
		if msg := payments.ServiceMessage(err); msg != "" {
			return errors.New(msg)
		}
		return fmt.Errorf("login: %w", err)
	}

	if err := session.SaveToken(cfg.SessionFile, session.Token{
		Token:     resp.Token,
		Email:     resp.User.Email,
		ServerURL: cfg.Server.URL,
		SavedAt:   time.Now().UTC(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). %d credits.\n", resp.User.Name, resp.User.Role, resp.User.Credits)
	return nil
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session on this machine",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := panel.sessionController(cmd.Context())
		if err != nil {
			return err
		}
		if err := controller.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user and session expiry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, err := panel.sessionController(cmd.Context())
		if err != nil {
			return err
		}
		current := controller.Current()
		if current == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (expires %s)\n", current.User.Email, current.Session.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email; prompted for when omitted")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	controller, err := panel.sessionController(ctx)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	email := strings.TrimSpace(loginEmail)
	if email == "" {
		if email, err = promptLine(in, cmd.ErrOrStderr(), "Email: "); err != nil {
			return err
		}
	}
	password, err := promptSecret(in, cmd.ErrOrStderr(), "Password: ")
	if err != nil {
		return err
	}

	challenge, err := controller.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if challenge != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "A new password is required for this account.")
		newPassword, err := promptSecret(in, cmd.ErrOrStderr(), "New password: ")
		if err != nil {
			return err
		}
		confirm, err := promptSecret(in, cmd.ErrOrStderr(), "Confirm password: ")
		if err != nil {
			return err
		}
		if err := controller.CompleteNewPassword(ctx, *challenge, newPassword, confirm); err != nil {
			return err
		}
	}

	if current := controller.Current(); current != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", current.User.Email)
	}
	return nil
}

func promptLine(in *bufio.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Unknown("Failed to read input", err.Error(), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads with echo disabled when stdin is a terminal and falls
// back to a plain line read for piped input.
func promptSecret(in *bufio.Reader, prompt io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(in, prompt, label)
	}

	fmt.Fprint(prompt, label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", errors.Unknown("Failed to read password", err.Error(), err)
	}
	return string(secret), nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/spf13/cobra"
)

var (
	panel   *app
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "panel",
	Short:         "Manage projects, webhooks and media on the streaming platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(envFile)
		if err != nil {
			return err
		}
		panel = a
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		a.closers = append(a.closers, func() error {
			stop()
			return nil
		})
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load settings from this .env file instead of ./.env")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, projectsCmd, webhookCmd, uploadCmd, playbackCmd)
}

// execute runs the root command and prints any failure with its error code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if panel != nil {
		panel.Close()
		panel = nil
	}
	if err != nil {
		fmt.Fprintln(stderr, describeError(err))
	}
	return err
}

func describeError(err error) string {
	appErr := errors.Normalize(err)
	msg := fmt.Sprintf("Error [%s]: %s", appErr.Code, appErr.Message)
	if appErr.Details != "" {
		msg += " (" + appErr.Details + ")"
	}
	return msg
}

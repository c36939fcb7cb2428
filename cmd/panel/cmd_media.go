package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jrsteele09/media-admin/signedurl"
	"github.com/spf13/cobra"
)

var (
	mediaAPIKey   string
	uploadFile    string
	uploadPath    string
	playbackWatch bool
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Webhook tools",
}

var webhookTestCmd = &cobra.Command{
	Use:   "test <url>",
	Short: "Send an empty JSON payload to a webhook through the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := panel.webhooks().Test(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if result.OK() {
			fmt.Fprintf(out, "Webhook responded with status %d\n", result.Status)
		} else {
			fmt.Fprintf(out, "Webhook test failed: status %d %s\n", result.Status, result.Error)
		}
		if len(result.Response) > 0 {
			fmt.Fprintf(out, "Response: %s\n", result.Response)
		}
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload tools",
}

var uploadTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Upload a file with a project API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		uploader, err := panel.uploader(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		last := -1
		result, err := uploader.UploadFile(ctx, mediaAPIKey, uploadPath, uploadFile, func(percent int) {
			fmt.Fprintf(out, "\rUploading %s: %3d%%", filepath.Base(uploadFile), percent)
			last = percent
		})
		if last >= 0 {
			fmt.Fprintln(out)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Uploaded %d bytes to %s\n", result.Size, result.Key)
		return nil
	},
}

var playbackCmd = &cobra.Command{
	Use:   "playback",
	Short: "Playback tools",
}

var playbackTestCmd = &cobra.Command{
	Use:   "test <video-path>",
	Short: "Fetch a signed URL and check the video manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaybackTest,
}

func init() {
	webhookCmd.AddCommand(webhookTestCmd)

	uploadTestCmd.Flags().StringVar(&mediaAPIKey, "api-key", "", "Project API key")
	uploadTestCmd.Flags().StringVar(&uploadFile, "file", "", "File to upload")
	uploadTestCmd.Flags().StringVar(&uploadPath, "path", "", "Optional object key prefix, e.g. videos/2024/ (include the trailing slash)")
	uploadCmd.AddCommand(uploadTestCmd)

	playbackTestCmd.Flags().StringVar(&mediaAPIKey, "api-key", "", "Project API key")
	playbackTestCmd.Flags().BoolVar(&playbackWatch, "watch", false, "Keep the signed URL fresh and re-check on every renewal")
	playbackCmd.AddCommand(playbackTestCmd)
}

func runPlaybackTest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	manager := panel.leaseManager()
	checker := panel.checker()

	if err := manager.Activate(ctx, mediaAPIKey); err != nil {
		return err
	}

	check := func(lease *signedurl.Lease) error {
		fmt.Fprintf(out, "Signed URL valid until %s\n", lease.ExpiresAt.Local().Format(time.TimeOnly))
		result, err := checker.Check(ctx, lease, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Manifest %d, %d entries, first entry %d, in %s\n",
			result.ManifestStatus, len(result.URIs), result.FirstStatus, result.Duration.Round(time.Millisecond))
		return nil
	}

	lease := manager.Current()
	if err := check(lease); err != nil || !playbackWatch {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := manager.Err(); err != nil {
			return err
		}
		next := manager.Current()
		if next == nil || next.ExpiresAt.Equal(lease.ExpiresAt) {
			continue
		}
		lease = next
		if err := check(lease); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), describeError(err))
		}
	}
}

package main

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/spf13/cobra"
)

var (
	projectName       string
	projectWebhookURL string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List, create and delete projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		token, err := panel.idToken(ctx)
		if err != nil {
			return err
		}
		all, err := panel.projects().List(ctx, token)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAPI KEY\tWEBHOOK\tCREATED")
		for _, p := range all {
			created := "-"
			if t := p.CreatedTime(); !t.IsZero() {
				created = t.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ProjectName, p.ProjectID, p.WebhookURL, created)
		}
		return w.Flush()
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project and print its API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		token, err := panel.idToken(ctx)
		if err != nil {
			return err
		}
		service := panel.projects()
		if service.NameExists(ctx, token, projectName) {
			return errors.New(errors.CodeProjectExists, "A project with this name already exists", errors.WithStatus(http.StatusConflict))
		}

		project, err := service.Create(ctx, token, projects.CreateRequest{
			ProjectName: projectName,
			WebhookURL:  projectWebhookURL,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\nAPI key: %s\n", project.ProjectName, project.ProjectID)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		token, err := panel.idToken(ctx)
		if err != nil {
			return err
		}
		if err := panel.projects().Delete(ctx, token, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name")
	projectsCreateCmd.Flags().StringVar(&projectWebhookURL, "webhook-url", "", "URL notified of processing events")
	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsDeleteCmd)
}

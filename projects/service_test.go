package projects_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/stretchr/testify/require"
)

var apiKeyPattern = regexp.MustCompile(`^sk_[0-9a-f]{64}$`)

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	repo, store := newRepository(t)
	svc := projects.NewService(repo)

	t.Run("creates with a generated key", func(t *testing.T) {
		p, err := svc.Create(ctx, projects.CreateRequest{ProjectName: "  my-project-1 ", WebhookURL: " https://hooks.example.com/x "})
		require.NoError(t, err)
		require.Regexp(t, apiKeyPattern, p.ProjectID)
		require.Equal(t, "my-project-1", p.ProjectName)
		require.Equal(t, "https://hooks.example.com/x", p.WebhookURL)
		require.False(t, p.CreatedTime().IsZero())
	})

	t.Run("duplicate name in another case conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, projects.CreateRequest{ProjectName: "MY-PROJECT-1", WebhookURL: "https://x.example.com"})
		require.EqualError(t, err, "A project with this name already exists")
		require.Equal(t, errors.CodeConflict, errors.CodeOf(err))
	})

	validation := []struct {
		name    string
		req     projects.CreateRequest
		message string
	}{
		{"missing name", projects.CreateRequest{WebhookURL: "https://x"}, "project_name is required"},
		{"blank name", projects.CreateRequest{ProjectName: "   ", WebhookURL: "https://x"}, "project_name is required"},
		{"space in name", projects.CreateRequest{ProjectName: "my project", WebhookURL: "https://x"}, "project_name can only contain letters, numbers, and hyphens. Spaces are not allowed."},
		{"underscore in name", projects.CreateRequest{ProjectName: "my_project", WebhookURL: "https://x"}, "project_name can only contain letters, numbers, and hyphens. Spaces are not allowed."},
		{"missing url", projects.CreateRequest{ProjectName: "p"}, "webhook_url is required"},
		{"bad url", projects.CreateRequest{ProjectName: "p", WebhookURL: "not a url"}, "webhook_url must be a valid URL"},
	}
	for _, tc := range validation {
		t.Run(tc.name, func(t *testing.T) {
			before := store.Calls()
			_, err := svc.Create(ctx, tc.req)
			require.EqualError(t, err, tc.message)
			require.Equal(t, errors.CodeValidationError, errors.CodeOf(err))
			require.Equal(t, before, store.Calls(), "validation must happen before any store call")
		})
	}
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepository(t)
	svc := projects.NewService(repo)

	err := svc.Delete(ctx, "  ")
	require.EqualError(t, err, "Project ID is required")

	p, err := svc.Create(ctx, projects.CreateRequest{ProjectName: "p", WebhookURL: "https://x.example.com"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ProjectID))
	require.NoError(t, svc.Delete(ctx, p.ProjectID))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestNewAPIKeyIsUnique(t *testing.T) {
	a, err := projects.NewAPIKey()
	require.NoError(t, err)
	b, err := projects.NewAPIKey()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Regexp(t, apiKeyPattern, a)
}

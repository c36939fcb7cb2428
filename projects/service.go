package projects

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const apiKeyPrefix = "sk_"

var projectNamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		return projectNamePattern.MatchString(fl.Field().String())
	})
	return v
}

var validationMessages = map[string]string{
	"ProjectName.required":    "project_name is required",
	"ProjectName.projectname": "project_name can only contain letters, numbers, and hyphens. Spaces are not allowed.",
	"WebhookURL.required":     "webhook_url is required",
	"WebhookURL.url":          "webhook_url must be a valid URL",
}

// Service holds the project rules on top of the repository.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Validate trims the request in place and checks it.
func Validate(req *CreateRequest) error {
	req.ProjectName = strings.TrimSpace(req.ProjectName)
	req.WebhookURL = strings.TrimSpace(req.WebhookURL)

	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Validation(err.Error(), "")
	}
	fe := fieldErrs[0]
	if msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]; ok {
		return errors.Validation(msg, "")
	}
	return errors.Validation(fmt.Sprintf("%s is invalid", fe.Field()), "")
}

func (s *Service) List(ctx context.Context) ([]Project, error) {
	return s.repo.FindAll(ctx)
}

// Create validates the request, rejects duplicate names and stores a new
// project with a freshly generated API key.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	if err := Validate(&req); err != nil {
		return nil, err
	}

	if s.repo.NameExists(ctx, req.ProjectName) {
		return nil, errors.Conflict("A project with this name already exists", "")
	}

	apiKey, err := NewAPIKey()
	if err != nil {
		return nil, errors.Server("Failed to create project", "", err)
	}

	project := Project{
		ProjectID:   apiKey,
		ProjectName: req.ProjectName,
		WebhookURL:  req.WebhookURL,
		CreatedAt:   NowTimeFunc().UTC().Format(time.RFC3339Nano),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("project_id", redact(project.ProjectID)).Str("project_name", project.ProjectName).Msg("project created")
	return &project, nil
}

func (s *Service) Delete(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.Validation("Project ID is required", "")
	}
	if err := s.repo.DeleteByID(ctx, projectID); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("project_id", redact(projectID)).Msg("project deleted")
	return nil
}

// NewAPIKey returns "sk_" followed by 64 lowercase hex characters.
func NewAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// redact keeps enough of an API key to correlate log lines.
func redact(key string) string {
	if len(key) <= len(apiKeyPrefix)+6 {
		return key
	}
	return key[:len(apiKeyPrefix)+6] + "…"
}

// Package apiclient holds the panel's typed services over the admin API.
// Errors coming back from the transport are re-mapped into messages the
// panel can show as-is.
package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/media-admin/httpclient"
	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/jrsteele09/media-admin/projects"
	"github.com/rs/zerolog/log"
)

const projectsEndpoint = "/api/projects"

const (
	msgSessionExpired  = "Your session has expired. Please sign in again."
	msgNetwork         = "Unable to connect to the server. Please check your internet connection."
	msgProjectExists   = "A project with this name already exists"
	msgProjectNotFound = "Project not found. It may have already been deleted."
	msgListFailed      = "Failed to fetch projects. Please try again later."
	msgCreateFailed    = "Failed to create project. Please try again."
	msgDeleteFailed    = "Failed to delete project. Please try again."
)

type ProjectService struct {
	client *httpclient.Client
}

func NewProjectService(client *httpclient.Client) *ProjectService {
	return &ProjectService{client: client}
}

func (s *ProjectService) List(ctx context.Context, idToken string) ([]projects.Project, error) {
	var out []projects.Project
	if err := s.client.Get(ctx, projectsEndpoint, idToken, &out); err != nil {
		appErr := errors.Normalize(err)
		switch appErr.Code {
		case errors.CodeUnauthorized:
			return nil, sessionExpired(appErr)
		case errors.CodeNetworkError:
			return nil, errors.Network(msgNetwork, appErr.Details, appErr)
		}
		return nil, operationFailed(msgListFailed, appErr)
	}
	if out == nil {
		out = []projects.Project{}
	}
	return out, nil
}

func (s *ProjectService) Create(ctx context.Context, idToken string, req projects.CreateRequest) (*projects.Project, error) {
	if strings.TrimSpace(req.ProjectName) == "" {
		return nil, errors.Validation("Project name is required", "")
	}
	if strings.TrimSpace(req.WebhookURL) == "" {
		return nil, errors.Validation("Webhook URL is required", "")
	}

	var out projects.Project
	if err := s.client.Post(ctx, projectsEndpoint, idToken, req, &out); err != nil {
		appErr := errors.Normalize(err)
		switch appErr.Code {
		case errors.CodeUnauthorized:
			return nil, sessionExpired(appErr)
		case errors.CodeConflict:
			return nil, errors.New(errors.CodeProjectExists, msgProjectExists, errors.WithStatus(http.StatusConflict),
				errors.WithDetails(appErr.Details), errors.WithCause(appErr))
		case errors.CodeValidationError:
			return nil, appErr
		}
		return nil, operationFailed(msgCreateFailed, appErr)
	}
	return &out, nil
}

func (s *ProjectService) Delete(ctx context.Context, idToken, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errors.Validation("Project ID is required", "")
	}

	if err := s.client.Delete(ctx, projectsEndpoint+"/"+url.PathEscape(projectID), idToken, nil); err != nil {
		appErr := errors.Normalize(err)
		switch appErr.Code {
		case errors.CodeUnauthorized:
			return sessionExpired(appErr)
		case errors.CodeNotFound:
			return errors.New(errors.CodeProjectNotFound, msgProjectNotFound, errors.WithStatus(http.StatusNotFound),
				errors.WithDetails(appErr.Details), errors.WithCause(appErr))
		}
		return operationFailed(msgDeleteFailed, appErr)
	}
	return nil
}

// NameExists reports false on any error; the server enforces uniqueness.
func (s *ProjectService) NameExists(ctx context.Context, idToken, name string) bool {
	all, err := s.List(ctx, idToken)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("name check skipped")
		return false
	}
	for _, p := range all {
		if strings.EqualFold(p.ProjectName, name) {
			return true
		}
	}
	return false
}

func sessionExpired(cause *errors.AppError) *errors.AppError {
	return errors.New(errors.CodeUnauthorized, msgSessionExpired, errors.WithStatus(http.StatusUnauthorized),
		errors.WithDetails(cause.Details), errors.WithCause(cause))
}

// operationFailed shows a fixed message and keeps the server's in details.
func operationFailed(message string, cause *errors.AppError) *errors.AppError {
	return errors.New(errors.CodeOperationFailed, message, errors.WithDetails(cause.Message), errors.WithCause(cause))
}

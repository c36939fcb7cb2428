package projects

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/media-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Repository is CRUD over one table of a Store.
type Repository struct {
	table string
	store Store
}

func NewRepository(table string, store Store) (*Repository, error) {
	if strings.TrimSpace(table) == "" {
		return nil, errors.Validation("PROJECTS_TABLE environment variable is not set", "Please configure it in your .env file.")
	}
	return &Repository{table: table, store: store}, nil
}

// FindAll returns every record. There is no pagination.
func (r *Repository) FindAll(ctx context.Context) ([]Project, error) {
	items, err := r.store.Scan(ctx, r.table)
	if err != nil {
		log.Ctx(ctx).Err(err).Str("table", r.table).Msg("Failed to fetch projects")
		return nil, wrapStoreError(err, "Failed to retrieve projects")
	}
	if items == nil {
		items = []Project{}
	}
	return items, nil
}

// Create stores the project, defaulting created_at to now. An existing record
// with the same id is overwritten.
func (r *Repository) Create(ctx context.Context, project Project) error {
	if project.CreatedAt == "" {
		project.CreatedAt = NowTimeFunc().UTC().Format(time.RFC3339Nano)
	}
	if err := r.store.Put(ctx, r.table, project); err != nil {
		log.Ctx(ctx).Err(err).Str("table", r.table).Str("project_id", project.ProjectID).Msg("Failed to create project")
		return wrapStoreError(err, "Failed to create project")
	}
	return nil
}

// DeleteByID is idempotent.
func (r *Repository) DeleteByID(ctx context.Context, projectID string) error {
	if err := r.store.Delete(ctx, r.table, projectID); err != nil {
		log.Ctx(ctx).Err(err).Str("table", r.table).Str("project_id", projectID).Msg("Failed to delete project")
		return wrapStoreError(err, "Failed to delete project")
	}
	return nil
}

// NameExists compares names case-insensitively over a full scan. A failed
// scan reports false, so callers must treat the answer as advisory.
func (r *Repository) NameExists(ctx context.Context, name string) bool {
	items, err := r.store.Scan(ctx, r.table)
	if err != nil {
		log.Ctx(ctx).Err(err).Str("table", r.table).Str("project_name", name).Msg("Failed to check project name existence")
		return false
	}
	for _, item := range items {
		if item.ProjectName != "" && strings.EqualFold(item.ProjectName, name) {
			return true
		}
	}
	return false
}

func wrapStoreError(err error, message string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return errors.Server(message, "", err)
}

package projects

import "context"

// Store is a document store keyed by project_id. Put overwrites and Delete of
// a missing key succeeds.
type Store interface {
	Scan(ctx context.Context, table string) ([]Project, error)
	Put(ctx context.Context, table string, project Project) error
	Delete(ctx context.Context, table, projectID string) error
}

package projects

import "time"

// Project is a tenant of the media platform. ProjectID doubles as the
// tenant's API key.
type Project struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreatedTime parses CreatedAt. It returns the zero time when unset or invalid.
func (p Project) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateRequest is the body of POST /api/projects.
type CreateRequest struct {
	ProjectName string `json:"project_name" validate:"required,projectname"`
	WebhookURL  string `json:"webhook_url" validate:"required,url"`
}

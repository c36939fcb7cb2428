package httpclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/media-admin/internal/errors"
)

func (c *Client) authenticated(ctx context.Context, method, endpoint, idToken string, body, out any) error {
	if idToken == "" {
		return errors.Unauthorized("Authentication token is required", "")
	}
	return c.Send(ctx, Request{
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
		Headers:  http.Header{"Authorization": {"Bearer " + idToken}},
	}, out)
}

func (c *Client) Get(ctx context.Context, endpoint, idToken string, out any) error {
	return c.authenticated(ctx, http.MethodGet, endpoint, idToken, nil, out)
}

func (c *Client) Post(ctx context.Context, endpoint, idToken string, body, out any) error {
	return c.authenticated(ctx, http.MethodPost, endpoint, idToken, body, out)
}

func (c *Client) Delete(ctx context.Context, endpoint, idToken string, out any) error {
	return c.authenticated(ctx, http.MethodDelete, endpoint, idToken, nil, out)
}

func (c *Client) PostUnauthenticated(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out)
}

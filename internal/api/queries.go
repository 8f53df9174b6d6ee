package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// ListQueries returns all saved queries.
func (c *Client) ListQueries(ctx context.Context) ([]core.Query, error) {
	var out []core.Query
	if err := c.doJSON(ctx, http.MethodGet, "/queries", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Query{}
	}
	return out, nil
}

// CreateQuery persists a new query.
func (c *Client) CreateQuery(ctx context.Context, in core.QueryInput) (*core.Query, error) {
	var out core.Query
	if err := c.doJSON(ctx, http.MethodPost, "/queries", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuery returns a saved query.
func (c *Client) GetQuery(ctx context.Context, id string) (*core.Query, error) {
	var out core.Query
	if err := c.doJSON(ctx, http.MethodGet, "/queries/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuery replaces the content of a saved query.
func (c *Client) UpdateQuery(ctx context.Context, id string, in core.QueryInput) (*core.Query, error) {
	var out core.Query
	if err := c.doJSON(ctx, http.MethodPut, "/queries/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteQuery removes a saved query.
func (c *Client) DeleteQuery(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/queries/"+url.PathEscape(id), nil, nil, nil)
}

// ListRuns returns the execution history of a saved query.
func (c *Client) ListRuns(ctx context.Context, queryID string) ([]core.QueryRun, error) {
	var out []core.QueryRun
	path := fmt.Sprintf("/queries/%s/runs", url.PathEscape(queryID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.QueryRun{}
	}
	return out, nil
}

// DeleteRun removes a run from the history.
func (c *Client) DeleteRun(ctx context.Context, runID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/query-runs/"+url.PathEscape(runID), nil, nil, nil)
}

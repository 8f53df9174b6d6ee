package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/leapstack-labs/zeus/pkg/core"
)

// ErrNoExecutionID is returned when the backend accepts a job without
// naming it.
var ErrNoExecutionID = errors.New("backend returned no execution id")

// ExecuteRun submits SQL as a new run of a saved query.
func (c *Client) ExecuteRun(ctx context.Context, queryID string, req core.ExecuteRequest) (string, error) {
	var out core.ExecuteResponse
	path := fmt.Sprintf("/queries/%s/runs", url.PathEscape(queryID))
	if err := c.doJSON(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return "", err
	}
	if out.ExecutionID == "" {
		return "", ErrNoExecutionID
	}
	return out.ExecutionID, nil
}

// ExecuteAdHoc submits SQL that is not tied to a saved query.
func (c *Client) ExecuteAdHoc(ctx context.Context, req core.ExecuteRequest) (string, error) {
	var out core.ExecuteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/athena/execute", nil, req, &out); err != nil {
		return "", err
	}
	if out.ExecutionID == "" {
		return "", ErrNoExecutionID
	}
	return out.ExecutionID, nil
}

// Execute submits SQL and returns the execution identifier immediately.
// Saved queries record a run; unsaved ones go to the ad-hoc endpoint.
func (c *Client) Execute(ctx context.Context, queryID, sql string, parameters map[string]string) (string, error) {
	req := core.ExecuteRequest{SQL: sql, Parameters: parameters}
	if queryID != "" {
		return c.ExecuteRun(ctx, queryID, req)
	}
	return c.ExecuteAdHoc(ctx, req)
}

// Results fetches one page of results and the current job status.
func (c *Client) Results(ctx context.Context, executionID string, page, size int) (*core.QueryResults, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out core.QueryResults
	path := "/athena/results/" + url.PathEscape(executionID)
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportFile is a downloaded results file.
type ExportFile struct {
	ContentDisposition string
	ContentType        string
	Data               []byte
}

// Export downloads the full results of an execution.
func (c *Client) Export(ctx context.Context, executionID string) (*ExportFile, error) {
	path := "/athena/export/" + url.PathEscape(executionID)
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return &ExportFile{
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentType:        resp.Header.Get("Content-Type"),
		Data:               data,
	}, nil
}

// Catalog fetches the database/table/column metadata tree.
func (c *Client) Catalog(ctx context.Context) (*core.Catalog, error) {
	var out core.Catalog
	if err := c.doJSON(ctx, http.MethodGet, "/athena/catalog", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

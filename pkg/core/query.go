package core

import "time"

// Query is a saved query as stored by the backend.
type Query struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SQL         string    `json:"sql"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QueryInput is the body of create and update requests.
type QueryInput struct {
	Name        string `json:"name"`
	SQL         string `json:"sql"`
	Description string `json:"description"`
}

// OpenQuery is an editable instance of a query held by the workbench.
// ID is empty until the query has been saved once.
type OpenQuery struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	SQL         string `json:"sql"`
	Description string `json:"description"`
	IsUnsaved   bool   `json:"isUnsaved"`
	IsDirty     bool   `json:"isDirty"`
}

// Saved reports whether the open query has a persisted counterpart.
func (q OpenQuery) Saved() bool {
	return !q.IsUnsaved && q.ID != ""
}

// Title returns the tab label, marking saved queries with unsaved edits.
func (q OpenQuery) Title() string {
	if q.IsDirty && !q.IsUnsaved {
		return q.Name + "*"
	}
	return q.Name
}

// Package core defines the shared language of the zeus workbench.
//
// This package contains:
//   - Persisted entities exchanged with the backend (Query, QueryRun)
//   - Workbench entities (OpenQuery)
//   - Execution status (RunStatus) and result pages (QueryResults)
//   - Catalog metadata (Catalog, Database, Table, Column)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

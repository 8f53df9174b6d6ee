package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/zeus/internal/cli/config"
)

// generateSchemaDocs generates the configuration reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "general", "timing", "s3"
}

// envName returns the environment variable overriding the field.
func (f ConfigField) envName() string {
	return "ZEUS_" + strings.ToUpper(strings.ReplaceAll(f.Name, ".", "_"))
}

// getConfigSchema returns the configuration schema definition.
// This mirrors internal/cli/config/types.go Config and S3Config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "api_url", Type: "string", Default: config.DefaultAPIURL, Description: "Base URL of the query backend", Category: "general"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Description: "Local state database holding open tabs and preferences", Category: "general"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: " + strings.Join(config.OutputModes, ", "), Category: "general"},
		{Name: "page_size", Type: "int", Default: fmt.Sprint(config.DefaultPageSize), Description: "Rows per results page", Category: "general"},
		{Name: "export_dir", Type: "string", Default: config.DefaultExportDir, Description: "Directory exports are written to", Category: "general"},
		{Name: "theme", Type: "string", Default: config.DefaultTheme, Description: "Workbench theme: auto, dark, light", Category: "general"},

		{Name: "poll_interval", Type: "duration", Default: config.DefaultPollInterval.String(), Description: "Delay between execution status polls", Category: "timing"},
		{Name: "runs_refresh", Type: "duration", Default: config.DefaultRunsRefresh.String(), Description: "Refresh interval of the run history pane", Category: "timing"},
		{Name: "catalog_ttl", Type: "duration", Default: config.DefaultCatalogTTL.String(), Description: "How long a fetched catalog stays fresh", Category: "timing"},
		{Name: "http_timeout", Type: "duration", Default: config.DefaultHTTPTimeout.String(), Description: "Timeout of a single backend request", Category: "timing"},

		{Name: "s3.region", Type: "string", Description: "Bucket region", Category: "s3"},
		{Name: "s3.endpoint", Type: "string", Description: "Custom endpoint for S3-compatible stores", Category: "s3"},
		{Name: "s3.path_style", Type: "bool", Default: "false", Description: "Use path-style bucket addressing", Category: "s3"},
		{Name: "s3.access_key_id", Type: "string", Description: "Static access key", Category: "s3"},
		{Name: "s3.secret_access_key", Type: "string", Description: "Static secret key", Category: "s3"},
	}
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "zeus configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("zeus reads `zeus.yaml` from the current directory or the nearest parent, falling back to the user configuration directory. " +
		"Environment variables override the file and command-line flags override both.")

	fields := getConfigSchema()

	sections := []struct {
		category, title, intro string
	}{
		{"general", "General", "Backend location, local state and presentation:"},
		{"timing", "Timing", "Durations use Go syntax such as `500ms`, `2s` or `5m`:"},
		{"s3", "S3 Export", "Used by `zeus export --s3`. Without static keys requests are sent unsigned, which suits public or local buckets. The region defaults to `us-east-1`."},
	}
	headers := []string{"Field", "Type", "Default", "Environment", "Description"}
	for _, sec := range sections {
		w.Header(2, sec.title)
		w.Paragraph(sec.intro)

		var rows [][]string
		for _, f := range fields {
			if f.Category != sec.category {
				continue
			}
			defVal := "-"
			if f.Default != "" {
				defVal = InlineCode(f.Default)
			}
			rows = append(rows, []string{
				InlineCode(f.Name),
				f.Type,
				defVal,
				InlineCode(f.envName()),
				f.Description,
			})
		}
		w.Table(headers, rows)
	}

	w.Header(2, "Full Configuration Example")
	w.CodeBlock("yaml", `# zeus.yaml
api_url: https://workbench.example.com/api
state_path: .zeus/state.db
output: auto
page_size: 100
export_dir: ./exports
theme: dark

poll_interval: 1s
runs_refresh: 10s
catalog_ttl: 10m
http_timeout: 30s

s3:
  region: eu-west-1
  endpoint: http://localhost:9000
  path_style: true`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

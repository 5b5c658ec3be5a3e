// Package logging provides slog-based structured logging helpers shared by
// the daemon, the pipelines, and the CLI. It standardizes field names so that
// pipeline runs can be traced across components by work item id, pipeline
// name, and node name.
package logging

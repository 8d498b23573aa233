package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"chartly/internal/service"
	"chartly/internal/sources"
)

func (s *Server) registerImportTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available import source types with their configuration schemas"),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("list_uploads",
		mcp.WithDescription("List stored file uploads available for import"),
	), s.handleListUploads)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Preview column metadata and sample rows from a source without importing anything"),
		mcp.WithString("sourceType", mcp.Description("Source type (use list_sources to see available types)"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
	), s.handlePreviewSource)

	s.mcp.AddTool(mcp.NewTool("suggest_schema",
		mcp.WithDescription("Propose a collection schema (field types, indexes) from a source's column metadata"),
		mcp.WithString("sourceType", mcp.Description("Source type"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("collectionName", mcp.Description("Target collection name")),
	), s.handleSuggestSchema)

	s.mcp.AddTool(mcp.NewTool("create_import_job",
		mcp.WithDescription("Create a saved import job (source → document store collection). The job can be run manually or on a schedule/file-watch trigger."),
		mcp.WithString("name", mcp.Description("Job name"), mcp.Required()),
		mcp.WithString("sourceType", mcp.Description("Source type"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("collectionName", mcp.Description("Target collection name")),
		mcp.WithString("schemaJSON", mcp.Description("Optional pinned schema descriptor as JSON; omitted: a schema is suggested on each run")),
		mcp.WithString("triggerType", mcp.Description("manual | schedule | file_watch (default: manual)")),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression or watched file path")),
	), s.handleCreateImportJob)

	s.mcp.AddTool(mcp.NewTool("list_import_jobs",
		mcp.WithDescription("List saved import jobs with their last run status"),
	), s.handleListImportJobs)

	s.mcp.AddTool(mcp.NewTool("run_import_job",
		mcp.WithDescription("🛑 DESTRUCTIVE: Execute an import job. May drop and rebuild the target collection."),
		mcp.WithString("jobId", mcp.Description("Import job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunImportJob)

	s.mcp.AddTool(mcp.NewTool("import_status",
		mcp.WithDescription("Get the provenance record for an import: progress, row counts, completion state"),
		mcp.WithString("sourceRef", mcp.Description("Source reference, e.g. upload:<id>"), mcp.Required()),
	), s.handleImportStatus)
}

func (s *Server) handleListSources(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.imports.ListSources())
}

func (s *Server) handleListUploads(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ups, err := s.uploads.ListByUser(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	return jsonResult(ups)
}

func parseSourceArgs(req mcp.CallToolRequest) (string, sources.SourceConfig, error) {
	sourceType := req.GetString("sourceType", "")
	cfgStr := req.GetString("sourceConfigJSON", "")
	if sourceType == "" || cfgStr == "" {
		return "", nil, fmt.Errorf("sourceType and sourceConfigJSON are required")
	}
	var cfg sources.SourceConfig
	if err := json.Unmarshal([]byte(cfgStr), &cfg); err != nil {
		return "", nil, fmt.Errorf("parse sourceConfig: %w", err)
	}
	return sourceType, cfg, nil
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType, cfg, err := parseSourceArgs(req)
	if err != nil {
		return nil, err
	}
	preview, err := s.imports.Preview(ctx, sourceType, cfg)
	if err != nil {
		return nil, err
	}
	return jsonResult(preview)
}

func (s *Server) handleSuggestSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType, cfg, err := parseSourceArgs(req)
	if err != nil {
		return nil, err
	}
	desc, err := s.imports.SuggestSchema(ctx, sourceType, cfg, req.GetString("collectionName", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(desc)
}

func (s *Server) handleCreateImportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType, cfg, err := parseSourceArgs(req)
	if err != nil {
		return nil, err
	}
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	job, err := s.imports.CreateJob(ctx, s.userID, service.ImportJobInput{
		Name:           name,
		SourceType:     sourceType,
		SourceConfig:   cfg,
		CollectionName: req.GetString("collectionName", ""),
		SchemaJSON:     req.GetString("schemaJSON", ""),
		TriggerType:    req.GetString("triggerType", ""),
		TriggerConfig:  req.GetString("triggerConfig", ""),
		Enabled:        true,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(job)
}

func (s *Server) handleListImportJobs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.imports.ListJobs(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunImportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	runLog, err := s.imports.RunJob(ctx, jobID)
	if err != nil {
		if runLog != nil {
			return jsonResult(runLog)
		}
		return nil, err
	}
	return jsonResult(runLog)
}

func (s *Server) handleImportStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("sourceRef", "")
	if ref == "" {
		return nil, fmt.Errorf("sourceRef is required")
	}
	rec, err := s.provenance.Get(ctx, s.userID, ref)
	if err != nil {
		return nil, err
	}
	return jsonResult(rec)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }

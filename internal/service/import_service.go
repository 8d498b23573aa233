package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"chartly/internal/domain"
	"chartly/internal/ingest"
	"chartly/internal/schema"
	"chartly/internal/sources"
	"chartly/internal/storage"
	"chartly/internal/tabular"
)

// ─────────────────────────────────────────────────────────────
// Import Service — business logic for data imports
// ─────────────────────────────────────────────────────────────

// ImportService ties sources, schema suggestion, the page
// orchestrator, and saved import jobs together, and owns the
// schedule/file-watch triggers for jobs.
type ImportService struct {
	jobs       *storage.JobStore
	registry   *sources.Registry
	orch       *ingest.Orchestrator
	suggester  schema.Suggester
	log        *logrus.Logger
	pageSize   int
	sampleSize int

	runningImports runningImportsGuard

	// watcher / cron lifecycle, guarded by watchMu: job CRUD handlers
	// restart the watchers from concurrent requests
	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

func NewImportService(
	jobs *storage.JobStore,
	registry *sources.Registry,
	orch *ingest.Orchestrator,
	suggester schema.Suggester,
	log *logrus.Logger,
	pageSize, sampleSize int,
) *ImportService {
	if pageSize <= 0 {
		pageSize = ingest.DefaultPageSize
	}
	if sampleSize <= 0 {
		sampleSize = 100
	}
	if suggester == nil {
		suggester = schema.HeuristicSuggester{}
	}
	return &ImportService{
		jobs:       jobs,
		registry:   registry,
		orch:       orch,
		suggester:  suggester,
		log:        log,
		pageSize:   pageSize,
		sampleSize: sampleSize,
	}
}

// ── Job CRUD ───────────────────────────────────────────────

type ImportJobInput struct {
	Name           string         `json:"name"`
	SourceType     string         `json:"sourceType"`
	SourceConfig   map[string]any `json:"sourceConfig"`
	CollectionName string         `json:"collectionName"`
	SchemaJSON     string         `json:"schemaJson"`
	DropOnRun      bool           `json:"dropOnRun"`
	TriggerType    string         `json:"triggerType"`
	TriggerConfig  string         `json:"triggerConfig"`
	Enabled        bool           `json:"enabled"`
}

func (s *ImportService) CreateJob(ctx context.Context, userID string, input ImportJobInput) (*domain.ImportJob, error) {
	if _, err := s.registry.Get(input.SourceType); err != nil {
		return nil, err
	}

	job := &domain.ImportJob{
		UserID:         userID,
		Name:           input.Name,
		SourceType:     input.SourceType,
		SourceCfg:      input.SourceConfig,
		CollectionName: input.CollectionName,
		SchemaJSON:     input.SchemaJSON,
		DropOnRun:      input.DropOnRun,
		TriggerType:    input.TriggerType,
		TriggerConfig:  input.TriggerConfig,
		Enabled:        input.Enabled,
	}
	if job.TriggerType == "" {
		job.TriggerType = domain.TriggerManual
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ImportService) GetJob(ctx context.Context, id string) (*domain.ImportJob, error) {
	return s.jobs.GetJob(ctx, id)
}

func (s *ImportService) ListJobs(ctx context.Context, userID string) ([]domain.ImportJob, error) {
	return s.jobs.ListJobs(ctx, userID)
}

func (s *ImportService) UpdateJob(ctx context.Context, id string, input ImportJobInput) error {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.registry.Get(input.SourceType); err != nil {
		return err
	}
	job.Name = input.Name
	job.SourceType = input.SourceType
	job.SourceCfg = input.SourceConfig
	job.CollectionName = input.CollectionName
	job.SchemaJSON = input.SchemaJSON
	job.DropOnRun = input.DropOnRun
	job.TriggerType = input.TriggerType
	job.TriggerConfig = input.TriggerConfig
	job.Enabled = input.Enabled

	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return err
	}
	s.RestartWatchers(ctx)
	return nil
}

func (s *ImportService) DeleteJob(ctx context.Context, id string) error {
	err := s.jobs.DeleteJob(ctx, id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

// ListSources returns the available source descriptors.
func (s *ImportService) ListSources() []sources.SourceSpec {
	return s.registry.List()
}

// ListRunLogs returns the last 50 run logs for a job.
func (s *ImportService) ListRunLogs(ctx context.Context, jobID string) ([]domain.ImportRunLog, error) {
	return s.jobs.ListRunLogs(ctx, jobID, 50)
}

// ── Preview / Schema Suggestion ────────────────────────────

// PreviewResult is the response from Preview: column metadata plus a
// handful of raw records.
type PreviewResult struct {
	Meta    tabular.MetaPayload `json:"meta"`
	Records []tabular.Record    `json:"records"`
}

func (s *ImportService) Preview(ctx context.Context, sourceType string, cfg sources.SourceConfig) (*PreviewResult, error) {
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ds, err := s.resolve(previewCtx, sourceType, cfg)
	if err != nil {
		return nil, err
	}

	n := 10
	if n > ds.TotalRows() {
		n = ds.TotalRows()
	}
	return &PreviewResult{Meta: ds.Metadata(), Records: ds.Slice(0, n)}, nil
}

// SuggestSchema resolves the source and proposes a collection schema
// from its column metadata. The result is advisory; callers may edit
// it before importing.
func (s *ImportService) SuggestSchema(ctx context.Context, sourceType string, cfg sources.SourceConfig, collectionName string) (*schema.Descriptor, error) {
	suggestCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ds, err := s.resolve(suggestCtx, sourceType, cfg)
	if err != nil {
		return nil, err
	}
	if collectionName == "" {
		collectionName = "imported_data"
	}
	return s.suggester.Suggest(suggestCtx, collectionName, ds.Metadata())
}

func (s *ImportService) resolve(ctx context.Context, sourceType string, cfg sources.SourceConfig) (*tabular.Dataset, error) {
	src, err := s.registry.Get(sourceType)
	if err != nil {
		return nil, err
	}
	return src.Resolve(ctx, cfg, s.sampleSize)
}

// sourceRef builds the stable provenance key for a source: the type
// plus whatever identifies the underlying data.
func sourceRef(sourceType string, cfg sources.SourceConfig) string {
	for _, key := range []string{"uploadId", "sheetId", "connectionId"} {
		if v, _ := cfg[key].(string); v != "" {
			return sourceType + ":" + v
		}
	}
	return sourceType
}

// ── Page Import ────────────────────────────────────────────

// ImportPageInput is one interactive page-import call. The client
// repeats the call with CurrentPage+1 while HasMoreData is true.
type ImportPageInput struct {
	UserID         string             `json:"userId"`
	SourceType     string             `json:"sourceType"`
	SourceConfig   map[string]any     `json:"sourceConfig"`
	Schema         *schema.Descriptor `json:"schema"`
	CollectionName string             `json:"collectionName"`
	DropCollection bool               `json:"dropCollection"`
	CurrentPage    int                `json:"currentPage"`
	PageSize       int                `json:"pageSize"`
}

func (s *ImportService) ImportPage(ctx context.Context, input ImportPageInput) (*ingest.PageResult, error) {
	ref := sourceRef(input.SourceType, input.SourceConfig)
	key := input.UserID + "/" + ref
	if !s.runningImports.TryLock(key) {
		return nil, fmt.Errorf("an import for %s is already running", ref)
	}
	defer s.runningImports.Unlock(key)

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	ds, err := s.resolve(runCtx, input.SourceType, input.SourceConfig)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}

	page := input.CurrentPage
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	return s.orch.RunPage(runCtx, ingest.PageRequest{
		UserID:         input.UserID,
		SourceRef:      ref,
		Dataset:        ds,
		Schema:         input.Schema,
		CollectionName: input.CollectionName,
		DropCollection: input.DropCollection,
		CurrentPage:    page,
		PageSize:       pageSize,
	})
}

// ── Full Job Run ───────────────────────────────────────────

// RunJob executes a saved import job to completion: the source is
// resolved once and every page is driven through the orchestrator.
func (s *ImportService) RunJob(ctx context.Context, id string) (*domain.ImportRunLog, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	ref := sourceRef(job.SourceType, job.SourceCfg)
	key := job.UserID + "/" + ref
	if !s.runningImports.TryLock(key) {
		return nil, fmt.Errorf("job %s is already running", id)
	}
	defer s.runningImports.Unlock(key)

	s.jobs.UpdateJobStatus(ctx, id, domain.RunStatusRunning, "")

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	runLog := &domain.ImportRunLog{JobID: id, StartedAt: time.Now()}
	runErr := s.runJob(runCtx, job, ref, runLog)

	now := time.Now()
	runLog.FinishedAt = &now
	runLog.Status = domain.RunStatusSuccess
	errMsg := ""
	if runErr != nil {
		runLog.Status = domain.RunStatusError
		runLog.Error = runErr.Error()
		errMsg = runErr.Error()
	}
	if err := s.jobs.CreateRunLog(ctx, runLog); err != nil {
		s.log.WithError(err).Warn("record run log")
	}
	s.jobs.UpdateJobStatus(ctx, id, runLog.Status, errMsg)

	return runLog, runErr
}

func (s *ImportService) runJob(ctx context.Context, job *domain.ImportJob, ref string, runLog *domain.ImportRunLog) error {
	ds, err := s.resolve(ctx, job.SourceType, sources.SourceConfig(job.SourceCfg))
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	runLog.RowsRead = ds.TotalRows()

	desc, err := s.jobSchema(ctx, job, ds)
	if err != nil {
		return err
	}

	drop := job.DropOnRun
	for page := 1; ; page++ {
		res, err := s.orch.RunPage(ctx, ingest.PageRequest{
			UserID:         job.UserID,
			SourceRef:      ref,
			Dataset:        ds,
			Schema:         desc,
			CollectionName: job.CollectionName,
			DropCollection: drop,
			CurrentPage:    page,
			PageSize:       s.pageSize,
		})
		if err != nil {
			return err
		}
		runLog.RowsInserted += res.InsertedCount
		if !res.HasMoreData {
			return nil
		}
	}
}

// jobSchema returns the job's pinned descriptor, or suggests one from
// the resolved dataset when none is pinned.
func (s *ImportService) jobSchema(ctx context.Context, job *domain.ImportJob, ds *tabular.Dataset) (*schema.Descriptor, error) {
	if job.SchemaJSON != "" {
		desc := &schema.Descriptor{}
		if err := json.Unmarshal([]byte(job.SchemaJSON), desc); err != nil {
			return nil, fmt.Errorf("parse job schema: %w", err)
		}
		return desc, nil
	}

	collection := job.CollectionName
	if collection == "" {
		collection = tabular.NormalizeHeader(job.Name)
	}
	return s.suggester.Suggest(ctx, collection, ds.Metadata())
}

// ── Watchers (cron + file_watch) ──────────────────────────

// RestartWatchers tears down the current watcher/cron and rebuilds
// them from the stored triggered jobs.
func (s *ImportService) RestartWatchers(ctx context.Context) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.stopWatchersLocked()

	jobs, err := s.jobs.ListTriggeredJobs(ctx)
	if err != nil {
		s.log.WithError(err).Error("watcher: list triggered jobs")
		return
	}

	s.startCron(ctx, jobs)
	s.startFileWatch(ctx, jobs)
}

func (s *ImportService) startCron(ctx context.Context, jobs []domain.ImportJob) {
	var scheduled int
	c := cron.New()
	for _, j := range jobs {
		if j.TriggerType != domain.TriggerSchedule || j.TriggerConfig == "" {
			continue
		}
		jid := j.ID
		_, err := c.AddFunc(j.TriggerConfig, func() {
			s.log.WithField("job", jid).Info("cron: running import job")
			if _, err := s.RunJob(ctx, jid); err != nil {
				s.log.WithField("job", jid).WithError(err).Error("cron: job failed")
			}
		})
		if err != nil {
			s.log.WithFields(logrus.Fields{"job": j.ID, "expr": j.TriggerConfig}).
				WithError(err).Error("cron: invalid expression")
			continue
		}
		scheduled++
	}
	if scheduled == 0 {
		return
	}
	c.Start()
	s.cronSched = c
	s.log.WithField("count", scheduled).Info("cron: scheduled import jobs")
}

func (s *ImportService) startFileWatch(ctx context.Context, jobs []domain.ImportJob) {
	pathToJob := make(map[string]string)
	for _, j := range jobs {
		if j.TriggerType != domain.TriggerFileWatch || j.TriggerConfig == "" {
			continue
		}
		absPath, err := filepath.Abs(j.TriggerConfig)
		if err != nil {
			s.log.WithField("path", j.TriggerConfig).WithError(err).Error("watcher: bad path")
			continue
		}
		pathToJob[absPath] = j.ID
	}
	if len(pathToJob) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.WithError(err).Error("watcher: create")
		return
	}
	s.watcher = watcher

	watchedDirs := make(map[string]bool)
	for absPath := range pathToJob {
		dir := filepath.Dir(absPath)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.log.WithField("dir", dir).WithError(err).Error("watcher: add dir")
			continue
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		// Debounce per job: editors fire several writes per save.
		timers := make(map[string]*time.Timer)
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				absPath, _ := filepath.Abs(event.Name)
				jobID, ok := pathToJob[absPath]
				if !ok {
					continue
				}
				if t, exists := timers[jobID]; exists {
					t.Stop()
				}
				jid := jobID
				timers[jobID] = time.AfterFunc(500*time.Millisecond, func() {
					s.log.WithFields(logrus.Fields{"path": absPath, "job": jid}).
						Info("watcher: file changed, running job")
					if _, err := s.RunJob(ctx, jid); err != nil {
						s.log.WithField("job", jid).WithError(err).Error("watcher: run failed")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.WithError(err).Error("watcher: event error")
			}
		}
	}()

	s.log.WithField("count", len(pathToJob)).Info("watcher: watching files")
}

// WaitRunning blocks until all in-flight imports finish or ctx is
// cancelled. Used for graceful shutdown.
func (s *ImportService) WaitRunning(ctx context.Context) {
	s.runningImports.WaitAll(ctx)
}

// Stop tears down all watchers and schedulers.
func (s *ImportService) Stop() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.stopWatchersLocked()
}

// stopWatchersLocked requires watchMu held.
func (s *ImportService) stopWatchersLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

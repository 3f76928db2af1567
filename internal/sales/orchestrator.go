// Package sales wires the refresh, extract and load stages of the Accurate
// sales-invoice pipeline.
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/fetch"
	"github.com/farxc/accurate-sales-etl/internal/sales/files"
	"github.com/farxc/accurate-sales-etl/internal/sales/flatten"
	"github.com/farxc/accurate-sales-etl/internal/sales/load"
	"github.com/farxc/accurate-sales-etl/internal/sales/refresh"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

// API is everything the pipeline calls on Accurate. *accurate.Client
// satisfies it.
type API interface {
	refresh.API
	fetch.API
}

const historyWriteTimeout = 10 * time.Second

type Config struct {
	StagingDir string
	Static     credentials.Static
	ChunkSize  int
	Fetch      fetch.Options
}

type Pipeline struct {
	storage     *store.Storage
	credentials credentials.Store
	static      credentials.Static
	stagingDir  string

	refresher *refresh.Refresher
	fetcher   *fetch.Fetcher
	flattener *flatten.Flattener
	loader    *load.Loader

	now       func() time.Time
	newRunID  func() uuid.UUID
	appLogger *logger.Logger
}

// NewPipeline builds a pipeline. Rotating credentials live in credStore,
// which may or may not be storage.CredentialVariables.
func NewPipeline(api API, storage *store.Storage, credStore credentials.Store, cfg Config, appLogger *logger.Logger) *Pipeline {
	return &Pipeline{
		storage:     storage,
		credentials: credStore,
		static:      cfg.Static,
		stagingDir:  cfg.StagingDir,
		refresher:   refresh.New(api, credStore, appLogger),
		fetcher:     fetch.New(api, cfg.Fetch, appLogger),
		flattener:   flatten.New(appLogger),
		loader:      load.New(storage, cfg.ChunkSize, nil, appLogger),
		now:         time.Now,
		newRunID:    uuid.New,
		appLogger:   appLogger,
	}
}

// Refresh is the refresh stage: it rotates tokens and the DB session and
// returns the credentials to use for extraction.
func (p *Pipeline) Refresh(ctx context.Context) (credentials.Credentials, error) {
	creds, err := credentials.Load(ctx, p.credentials, p.static)
	if err != nil {
		return credentials.Credentials{}, err
	}
	return p.refresher.Refresh(ctx, creds)
}

// Extract is the extract stage: fetch, flatten and stage w.
func (p *Pipeline) Extract(ctx context.Context, w types.Window, creds credentials.Credentials) (types.Counts, error) {
	const component = "Extractor"

	if err := creds.ValidateForData(); err != nil {
		return types.Counts{}, err
	}

	invoices, err := p.fetcher.Fetch(ctx, creds, w)
	if err != nil {
		return types.Counts{}, err
	}

	headers, details := p.flattener.Flatten(invoices, p.now())
	if err := flatten.CheckLinkage(headers, details); err != nil {
		return types.Counts{}, err
	}

	headersPath, err := files.WriteHeaders(p.stagingDir, w, headers)
	if err != nil {
		return types.Counts{}, err
	}
	detailsPath, err := files.WriteDetails(p.stagingDir, w, details)
	if err != nil {
		return types.Counts{}, err
	}

	p.appLogger.Info(component, "Staged window: window=%s invoices=%d details=%d headers_file=%s details_file=%s",
		w, len(headers), len(details), headersPath, detailsPath)
	return types.Counts{Invoices: len(headers), Details: len(details)}, nil
}

// Load is the load stage: read the staged files of w and append them.
func (p *Pipeline) Load(ctx context.Context, w types.Window) (types.Counts, error) {
	headers, err := files.ReadHeaders(p.stagingDir, w)
	if err != nil {
		return types.Counts{}, err
	}
	details, err := files.ReadDetails(p.stagingDir, w)
	if err != nil {
		return types.Counts{}, err
	}

	result, err := p.loader.Load(ctx, headers, details)
	return types.Counts{Invoices: result.Invoices, Details: result.Details}, err
}

type RunRequest struct {
	Window  types.Window
	Stage   types.Stage
	Trigger string
}

type StageReport struct {
	Stage     types.Stage
	HistoryID int64
	Counts    types.Counts
	Err       error
}

type RunReport struct {
	RunID  uuid.UUID
	Stages []StageReport
}

// Run executes the requested stages in order under the run lock. Each stage
// gets an ingestion_history row that starts in_progress and ends as success
// or failure. The first failing stage stops the run.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	const component = "Orchestrator"

	report := RunReport{RunID: p.newRunID()}

	if err := req.Window.Validate(); err != nil {
		return report, err
	}
	steps, err := req.Stage.Steps()
	if err != nil {
		return report, err
	}
	if req.Trigger == "" {
		req.Trigger = store.TriggerTypeManual
	}

	lock, err := newRunLock(p.stagingDir)
	if err != nil {
		return report, err
	}
	if err := lock.TryLock(); err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.appLogger.Warn(component, "Failed to release run lock: error=%v", err)
		}
	}()

	p.appLogger.Info(component, "Starting run: run_id=%s window=%s stage=%s trigger=%s", report.RunID, req.Window, req.Stage, req.Trigger)

	creds := mo.None[credentials.Credentials]()
	for _, stage := range steps {
		history := &store.IngestionHistory{
			RunID:       report.RunID,
			WindowStart: req.Window.Start,
			WindowEnd:   req.Window.End,
			Stage:       string(stage),
			TriggerType: req.Trigger,
			Status:      store.StatusInProgress,
		}
		if err := p.storage.IngestionHistory.InsertIngestionHistory(ctx, history); err != nil {
			p.appLogger.Error(component, "Failed to create in_progress record: stage=%s error=%v", stage, err)
			return report, err
		}

		started := time.Now()
		counts, next, stageErr := p.runStage(ctx, stage, req.Window, creds)
		creds = next
		stageReport := StageReport{Stage: stage, HistoryID: history.ID, Counts: counts, Err: stageErr}
		report.Stages = append(report.Stages, stageReport)

		outcome := store.IngestionOutcome{
			Status:        store.StatusSuccess,
			InvoicesCount: counts.Invoices,
			DetailsCount:  counts.Details,
		}
		if stageErr != nil {
			msg := stageErr.Error()
			outcome.Status = store.StatusFailure
			outcome.ErrorMessage = &msg
		}
		if err := p.finishHistory(ctx, history.ID, outcome); err != nil {
			p.appLogger.Error(component, "Failed to update final status: id=%d status=%s error=%v", history.ID, outcome.Status, err)
		}

		if stageErr != nil {
			p.appLogger.Error(component, "Stage failed: run_id=%s stage=%s elapsed=%s error=%v hints=%v",
				report.RunID, stage, time.Since(started), stageErr, ierr.Hints(stageErr))
			return report, stageErr
		}
		p.appLogger.Info(component, "Stage completed: run_id=%s stage=%s invoices=%d details=%d elapsed=%s",
			report.RunID, stage, counts.Invoices, counts.Details, time.Since(started))
	}

	return report, nil
}

// finishHistory closes a history row even when ctx was cancelled by the
// stage it records.
func (p *Pipeline) finishHistory(ctx context.Context, id int64, outcome store.IngestionOutcome) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	return p.storage.IngestionHistory.UpdateIngestionStatus(ctx, id, outcome)
}

// runStage executes one stage. Credentials produced by the refresh stage are
// handed to extract; when extract runs without them they come from the store.
func (p *Pipeline) runStage(ctx context.Context, stage types.Stage, w types.Window, creds mo.Option[credentials.Credentials]) (types.Counts, mo.Option[credentials.Credentials], error) {
	switch stage {
	case types.StageRefresh:
		refreshed, err := p.Refresh(ctx)
		if err != nil {
			return types.Counts{}, creds, err
		}
		return types.Counts{}, mo.Some(refreshed), nil

	case types.StageExtract:
		current, ok := creds.Get()
		if !ok {
			loaded, err := credentials.Load(ctx, p.credentials, p.static)
			if err != nil {
				return types.Counts{}, creds, err
			}
			current = loaded
		}
		counts, err := p.Extract(ctx, w, current)
		return counts, mo.Some(current), err

	case types.StageLoad:
		counts, err := p.Load(ctx, w)
		return counts, creds, err

	default:
		return types.Counts{}, creds, ierr.NewErrorf("unknown stage %q", string(stage)).
			Mark(ierr.ErrValidation)
	}
}

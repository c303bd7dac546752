// Package orchestrator drives runs through the lifecycle state machine:
// READY -> RUNNING -> {SUCCEEDED, FAILED, TIMED-OUT, ABORTED}, with
// at-most-one-worker dispatch, timeout handling, abort, resurrection,
// and an orphan janitor, driving pkg/runtime's ContainerRuntime
// collaborator.
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crawlee-cloud/crawlee-cloud/pkg/apierr"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/auth"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/coord"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/db/models"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/ids"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/kvstore"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/logs"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/qlog"
	"github.com/crawlee-cloud/crawlee-cloud/pkg/runtime"
	"github.com/uptrace/bun"
)

const newRunChannel = "run:new"

// CreateInput is the caller-supplied shape for CreateRun.
type CreateInput struct {
	Input        []byte // raw bytes written to the INPUT key-value record
	InputMIME    string
	TimeoutSecs  int
	MemoryMbytes int
}

// Service implements the run lifecycle contract against the metadata
// store, coordination store, and storage services.
type Service struct {
	db       *bun.DB
	coordSt  coord.Store
	runtimes map[string]runtime.ContainerRuntime
	auth     *auth.JWTAuthenticator
	kv       *kvstore.Service
	logs     *logs.Service
	log      *qlog.Logger

	baseURL        string
	stopGrace      time.Duration
	janitorGrace   time.Duration
	runTokenTTL    time.Duration
	defaultRuntime string
	activeRunSlots chan struct{}
}

// Config bundles the collaborators and tunables Service needs.
type Config struct {
	DB                *bun.DB
	Coord             coord.Store
	Runtimes          map[string]runtime.ContainerRuntime
	DefaultRuntime    string
	Auth              *auth.JWTAuthenticator
	KeyValueStores    *kvstore.Service
	Logs              *logs.Service
	Logger            *qlog.Logger
	BaseURL           string
	MaxConcurrentRuns int
	StopGracePeriod   time.Duration
	JanitorGrace      time.Duration
	RunTokenTTL       time.Duration
}

func NewService(cfg Config) *Service {
	return &Service{
		db:             cfg.DB,
		coordSt:        cfg.Coord,
		runtimes:       cfg.Runtimes,
		auth:           cfg.Auth,
		kv:             cfg.KeyValueStores,
		logs:           cfg.Logs,
		log:            cfg.Logger,
		baseURL:        cfg.BaseURL,
		stopGrace:      cfg.StopGracePeriod,
		janitorGrace:   cfg.JanitorGrace,
		runTokenTTL:    cfg.RunTokenTTL,
		defaultRuntime: cfg.DefaultRuntime,
		activeRunSlots: make(chan struct{}, cfg.MaxConcurrentRuns),
	}
}

// CreateRun allocates fresh storage handles, seeds the INPUT record, and
// inserts a READY run row, then notifies dispatch workers.
func (s *Service) CreateRun(ctx context.Context, actor *models.Actor, principalID string, in CreateInput) (*models.Run, error) {
	run := &models.Run{
		ID:          ids.New(),
		ActorID:     actor.ID,
		PrincipalID: principalID,
		Status:      models.RunStatusReady,
	}

	if in.TimeoutSecs > 0 {
		run.TimeoutSecs = in.TimeoutSecs
	} else {
		run.TimeoutSecs = actor.DefaultTimeoutSecs
	}
	if in.MemoryMbytes > 0 {
		run.MemoryMbytes = in.MemoryMbytes
	} else {
		run.MemoryMbytes = actor.DefaultMemoryMbytes
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		runDS := &models.Dataset{ID: ids.New()}
		if _, err := tx.NewInsert().Model(runDS).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to allocate run dataset", err)
		}
		runKVS := &models.KeyValueStore{ID: ids.New()}
		if _, err := tx.NewInsert().Model(runKVS).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to allocate run key-value store", err)
		}
		runRQ := &models.RequestQueue{ID: ids.New()}
		if _, err := tx.NewInsert().Model(runRQ).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to allocate run request queue", err)
		}

		run.DefaultDatasetID = runDS.ID
		run.DefaultKeyValueStoreID = runKVS.ID
		run.DefaultRequestQueueID = runRQ.ID

		if _, err := tx.NewInsert().Model(run).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to insert run", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.kv.Put(ctx, run.DefaultKeyValueStoreID, "INPUT", in.Input, in.InputMIME); err != nil {
		s.log.Errorf("failed to seed run input for %s: %v", run.ID, err)
	}

	if err := s.coordSt.Publish(ctx, newRunChannel, []byte(run.ID)); err != nil {
		s.log.Errorf("failed to publish run:new for %s: %v", run.ID, err)
	}

	return run, nil
}

// GetRun reads a run row without driving any transition.
func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	run := new(models.Run)
	if err := s.db.NewSelect().Model(run).Where("id = ?", runID).Scan(ctx); err != nil {
		return nil, apierr.NotFound("run", runID)
	}
	return run, nil
}

// AbortRun transitions a RUNNING run to ABORTED, then asks every registered
// runtime to stop the run's container. The live driver's later status
// update is rejected, since ABORTED is terminal.
func (s *Service) AbortRun(ctx context.Context, runID string) (*models.Run, error) {
	var run *models.Run
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Run)
		if err := tx.NewSelect().Model(row).Where("id = ?", runID).For("UPDATE").Scan(ctx); err != nil {
			return apierr.NotFound("run", runID)
		}
		if row.Status != models.RunStatusRunning {
			return apierr.New(apierr.CodeInvalidState, fmt.Sprintf("run is %s, not RUNNING", row.Status), nil)
		}

		now := time.Now()
		row.Status = models.RunStatusAborted
		row.FinishedAt = &now
		if _, err := tx.NewUpdate().Model(row).
			Set("status = ?", row.Status).
			Set("finished_at = ?", now).
			Set("updated_at = current_timestamp").
			Where("id = ?", row.ID).
			Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to update run", err)
		}
		run = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, rt := range s.runtimes {
		_ = rt.Stop(ctx, runID, s.stopGrace)
	}
	return run, nil
}

// ResurrectRun transitions a terminal run back to RUNNING, clearing
// finishedAt and reusing its original storage handles.
// The log ring is not reset: earlier lines stay and new lines are appended.
func (s *Service) ResurrectRun(ctx context.Context, runID string) (*models.Run, error) {
	var run *models.Run
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Run)
		if err := tx.NewSelect().Model(row).Where("id = ?", runID).For("UPDATE").Scan(ctx); err != nil {
			return apierr.NotFound("run", runID)
		}
		if !row.Status.IsTerminal() {
			return apierr.New(apierr.CodeInvalidState, fmt.Sprintf("run is %s, not terminal", row.Status), nil)
		}

		row.Status = models.RunStatusRunning
		row.FinishedAt = nil
		now := time.Now()
		row.StartedAt = &now
		if _, err := tx.NewUpdate().Model(row).
			Set("status = ?", row.Status).
			Set("finished_at = NULL").
			Set("started_at = ?", now).
			Set("updated_at = current_timestamp").
			Where("id = ?", row.ID).
			Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to update run", err)
		}
		run = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.coordSt.Publish(ctx, newRunChannel, []byte(run.ID)); err != nil {
		s.log.Errorf("failed to publish run:new for resurrected run %s: %v", run.ID, err)
	}
	return run, nil
}

// validTransitions enumerates the state machine's legal edges for
// UpdateStatus.
var validTransitions = map[models.RunStatus][]models.RunStatus{
	models.RunStatusReady:   {models.RunStatusRunning},
	models.RunStatusRunning: {models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusTimedOut, models.RunStatusAborted},
}

func isValidTransition(from, to models.RunStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus is the trusted internal entry point (the runtime driver)
// used to report a run's outcome. finishedAt is set automatically iff the
// new status is terminal.
func (s *Service) UpdateStatus(ctx context.Context, runID string, status models.RunStatus, statusMessage string, exitCode *int) (*models.Run, error) {
	var run *models.Run
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Run)
		if err := tx.NewSelect().Model(row).Where("id = ?", runID).For("UPDATE").Scan(ctx); err != nil {
			return apierr.NotFound("run", runID)
		}
		if !isValidTransition(row.Status, status) {
			return apierr.New(apierr.CodeInvalidTransition, fmt.Sprintf("cannot transition %s -> %s", row.Status, status), nil)
		}

		q := tx.NewUpdate().Model(row).
			Set("status = ?", status).
			Set("status_message = ?", statusMessage).
			Set("updated_at = current_timestamp")
		if exitCode != nil {
			q = q.Set("exit_code = ?", *exitCode)
		}
		if status.IsTerminal() {
			now := time.Now()
			q = q.Set("finished_at = ?", now)
			row.FinishedAt = &now
		}
		if _, err := q.Where("id = ?", row.ID).Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to update run status", err)
		}

		row.Status = status
		row.StatusMessage = statusMessage
		if exitCode != nil {
			row.ExitCode = exitCode
		}
		run = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RunDispatchLoop repeatedly claims and launches pending runs until ctx is
// canceled. It should be started once per worker process.
func (s *Service) RunDispatchLoop(ctx context.Context, pollEvery time.Duration) {
	sub := s.coordSt.Subscribe(ctx, newRunChannel)
	defer sub.Close()

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tryDispatchOne(ctx)
		case <-sub.Messages():
			s.tryDispatchOne(ctx)
		}
	}
}

func (s *Service) tryDispatchOne(ctx context.Context) {
	select {
	case s.activeRunSlots <- struct{}{}:
	default:
		return
	}

	claimed, err := s.claimNextReady(ctx)
	if err != nil {
		<-s.activeRunSlots
		s.log.Errorf("dispatch claim failed: %v", err)
		return
	}
	if claimed == nil {
		<-s.activeRunSlots
		return
	}

	go func() {
		defer func() { <-s.activeRunSlots }()
		s.driveRun(context.Background(), claimed)
	}()
}

// claimNextReady performs the skip-locked at-most-one-worker dispatch
// read: select the oldest READY run, skipping rows
// already locked by a concurrent claimant, and flip it to RUNNING.
func (s *Service) claimNextReady(ctx context.Context) (*models.Run, error) {
	var run *models.Run
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(models.Run)
		err := tx.NewSelect().Model(row).
			Where("status = ?", models.RunStatusReady).
			Order("created_at ASC").
			Limit(1).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to read dispatch candidate", err)
		}

		now := time.Now()
		if _, err := tx.NewUpdate().Model(row).
			Set("status = ?", models.RunStatusRunning).
			Set("started_at = ?", now).
			Set("updated_at = current_timestamp").
			Where("id = ?", row.ID).
			Exec(ctx); err != nil {
			return apierr.New(apierr.CodeDependencyUnavailable, "failed to claim run", err)
		}

		row.Status = models.RunStatusRunning
		row.StartedAt = &now
		run = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// driveRun launches the container for a claimed run, races it against its
// timeout, and reports the outcome via UpdateStatus.
func (s *Service) driveRun(ctx context.Context, run *models.Run) {
	rt, ok := s.runtimes[s.defaultRuntime]
	if !ok {
		s.log.Errorf("no container runtime registered for %q", s.defaultRuntime)
		s.failRun(ctx, run.ID, "no container runtime available")
		return
	}

	actor := new(models.Actor)
	if err := s.db.NewSelect().Model(actor).Where("id = ?", run.ActorID).Scan(ctx); err != nil {
		s.failRun(ctx, run.ID, "actor no longer exists")
		return
	}

	env, err := s.buildEnv(ctx, run, actor)
	if err != nil {
		s.failRun(ctx, run.ID, "failed to prepare run environment")
		return
	}

	deadline := time.Duration(run.TimeoutSecs) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	spec := runtime.ContainerSpec{
		RunID:   run.ID,
		Image:   actor.DefaultImage,
		Env:     env,
		Memory:  int64(run.MemoryMbytes),
		Timeout: deadline,
	}

	sink := func(line runtime.LogLine) {
		_ = s.logs.Append(context.Background(), run.ID, fmt.Sprintf("[%s] %s", line.Level, line.Message))
	}

	result, err := rt.Execute(runCtx, spec, sink)
	if err != nil {
		s.log.Errorf("run %s: container execution error: %v", run.ID, err)
		s.failRun(ctx, run.ID, err.Error())
		return
	}

	switch {
	case result.TimedOut:
		s.reportOutcome(ctx, run.ID, models.RunStatusTimedOut, "timed out", &result.ExitCode)
	case result.ExitCode == 0:
		s.reportOutcome(ctx, run.ID, models.RunStatusSucceeded, "", &result.ExitCode)
	default:
		s.reportOutcome(ctx, run.ID, models.RunStatusFailed, fmt.Sprintf("exit code %d", result.ExitCode), &result.ExitCode)
	}
}

func (s *Service) reportOutcome(ctx context.Context, runID string, status models.RunStatus, message string, exitCode *int) {
	if _, err := s.UpdateStatus(ctx, runID, status, message, exitCode); err != nil {
		s.log.Errorf("run %s: failed to report outcome %s: %v", runID, status, err)
	}
}

func (s *Service) failRun(ctx context.Context, runID, message string) {
	code := 1
	s.reportOutcome(ctx, runID, models.RunStatusFailed, message, &code)
}

// buildEnv materializes the environment block injected into every Actor
// container. Variable names
// follow the third-party SDK's existing convention so unmodified client
// code can read them.
func (s *Service) buildEnv(ctx context.Context, run *models.Run, actor *models.Actor) (map[string]string, error) {
	token, err := s.auth.SignRunToken(run.ID, actor.ID, s.runTokenTTL)
	if err != nil {
		return nil, apierr.New(apierr.CodeInternal, "failed to sign run token", err)
	}

	timeoutAt := time.Now().Add(time.Duration(run.TimeoutSecs) * time.Second)

	return map[string]string{
		"APIFY_ACTOR_ID":                  actor.ID,
		"APIFY_ACTOR_RUN_ID":              run.ID,
		"APIFY_USER_ID":                   run.PrincipalID,
		"APIFY_API_BASE_URL":              s.baseURL,
		"APIFY_TOKEN":                     token,
		"APIFY_DEFAULT_DATASET_ID":        run.DefaultDatasetID,
		"APIFY_DEFAULT_KEY_VALUE_STORE_ID": run.DefaultKeyValueStoreID,
		"APIFY_DEFAULT_REQUEST_QUEUE_ID":  run.DefaultRequestQueueID,
		"IS_AT_HOME":                      "1",
		"HEADLESS":                        "1",
		"APIFY_MEMORY_MBYTES":             fmt.Sprintf("%d", run.MemoryMbytes),
		"APIFY_TIMEOUT_AT":                timeoutAt.UTC().Format(time.RFC3339),
		"APIFY_LOCAL_STORAGE_DIR":         fmt.Sprintf("/storage/%s", run.ID),
	}, nil
}

// RunJanitor scans for RUNNING runs whose deadline plus grace has passed
// with no live driver and fails them as orphaned.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOrphans(ctx); err != nil {
				s.log.Errorf("janitor sweep failed: %v", err)
			}
		}
	}
}

func (s *Service) sweepOrphans(ctx context.Context) error {
	var orphans []models.Run
	if err := s.db.NewSelect().Model(&orphans).
		Where("status = ?", models.RunStatusRunning).
		Scan(ctx); err != nil {
		return apierr.New(apierr.CodeDependencyUnavailable, "failed to scan for orphaned runs", err)
	}

	now := time.Now()
	for _, run := range orphans {
		if run.StartedAt == nil {
			continue
		}
		deadline := run.StartedAt.Add(time.Duration(run.TimeoutSecs)*time.Second + s.janitorGrace)
		if now.Before(deadline) {
			continue
		}
		if _, err := s.UpdateStatus(ctx, run.ID, models.RunStatusFailed, "orphaned", nil); err != nil {
			s.log.Errorf("janitor failed to reap orphaned run %s: %v", run.ID, err)
		}
	}
	return nil
}

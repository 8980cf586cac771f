package importer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	apperrors "github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/geocode"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/registry"
	"github.com/trialsite/trial-importer/internal/store"
)

// SweepFetcher fetches every page of the scheduled sweep.
type SweepFetcher interface {
	FetchAll(ctx context.Context, expr string) ([]registry.FullStudy, int, error)
}

// SingleFetcher fetches one study by external id.
type SingleFetcher interface {
	FetchStudy(ctx context.Context, nctID string) (*registry.FullStudy, error)
}

// RunOptions configures one import invocation.
type RunOptions struct {
	// NCTID restricts the run to a single external id, bypassing the
	// inactive-id sweep filter.
	NCTID string
	// Manual marks an operator-triggered run; the completion report mail
	// fires only for scheduled runs.
	Manual bool
}

// Service orchestrates an import run: fetch, filter, reconcile, resolve
// locations, report. Runs are strictly sequential; a second trigger while
// one is active is rejected.
type Service struct {
	cfg      *config.Config
	store    store.Store
	sweep    SweepFetcher
	single   SingleFetcher
	filter   *registry.FilterEngine
	resolver *geocode.Resolver
	reporter *Reporter
	progress *ProgressTracker
	logger   *logrus.Logger

	mu         sync.Mutex
	running    bool
	startedAt  time.Time
	lastReport *models.ImportReport
}

// NewService creates the import service.
func NewService(
	cfg *config.Config,
	s store.Store,
	sweep SweepFetcher,
	single SingleFetcher,
	filter *registry.FilterEngine,
	resolver *geocode.Resolver,
	reporter *Reporter,
	logger *logrus.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    s,
		sweep:    sweep,
		single:   single,
		filter:   filter,
		resolver: resolver,
		reporter: reporter,
		progress: NewProgressTracker(),
		logger:   logger,
	}
}

// Progress returns the current run's progress snapshot.
func (s *Service) Progress() (*models.ImportProgress, bool) {
	return s.progress.Snapshot()
}

// LastReport returns the most recent completed run's report.
func (s *Service) LastReport() *models.ImportReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// RemoveTrial trashes a stored trial and removes its location references,
// deleting locations it was the last trial to reference.
func (s *Service) RemoveTrial(ctx context.Context, nctID string) error {
	postID, err := s.store.FindByExternalID(ctx, models.PostTypeTrial, nctID)
	if err != nil {
		return apperrors.NewPersistenceError("failed to look up trial", err)
	}
	if postID == 0 {
		return apperrors.NewPersistenceError("trial not found: "+nctID, nil)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil || post == nil {
		return apperrors.NewPersistenceError("failed to load trial", err)
	}
	post.Status = models.StatusTrash
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return apperrors.NewPersistenceError("failed to trash trial", err)
	}

	return s.resolver.RemoveTrialRefs(ctx, nctID)
}

// RunImport executes one import run to completion and returns the
// aggregated report. Only a config error (missing field-group schema,
// invalid configuration) propagates; everything else is contained at page
// or record scope and reflected in the report.
func (s *Service) RunImport(ctx context.Context, opts RunOptions) (*models.ImportReport, error) {
	s.mu.Lock()
	if s.running {
		startedAt := s.startedAt
		s.mu.Unlock()
		return nil, apperrors.NewImportInProgressError(startedAt)
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.progress.Clear()
	}()

	// Nothing downstream can proceed without the field schema.
	fieldGroup, err := config.LoadFieldGroup(s.cfg.Import.FieldGroupPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Import.RunTimeout)
	defer cancel()

	report := &models.ImportReport{
		StartedAt: time.Now(),
		Manual:    opts.Manual,
	}

	logger := s.logger.WithFields(logrus.Fields{
		"manual": opts.Manual,
		"nct_id": opts.NCTID,
	})
	logger.Info("Starting import run")

	studies, total, err := s.fetchCandidates(ctx, opts)
	if err != nil {
		return nil, err
	}
	report.TotalFound = total

	reconciler := NewReconciler(s.store, s.filter, &s.cfg.Import, fieldGroup, s.logger)

	for i := range studies {
		study := &studies[i]
		trial := registry.ParseStudy(study, &s.cfg.Registry)
		if trial.NCTID == "" {
			logger.WithField("rank", study.Rank).Warn("Study missing external id, skipping")
			continue
		}

		s.progress.Update("reconciling", i+1, len(studies), map[string]interface{}{
			"nct_id": trial.NCTID,
		})

		if opts.NCTID == "" && !s.filter.EligibleByGeography(trial) {
			report.Add(models.ImportResult{
				Name:       trial.Title,
				ExternalID: trial.NCTID,
				Message:    "excluded by geography filter",
				Status:     models.ResultNotImported,
			})
			continue
		}

		result := reconciler.Reconcile(ctx, trial, report)
		report.Add(result)

		switch result.Status {
		case models.ResultCreated, models.ResultUpdated, models.ResultSkipped:
			s.progress.Update("geocoding", i+1, len(studies), map[string]interface{}{
				"nct_id":    trial.NCTID,
				"locations": len(trial.Locations),
			})
			s.resolver.ResolveLocations(ctx, trial, report)
		}
	}

	report.FinishedAt = time.Now()

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if !opts.Manual {
		if err := s.reporter.Send(report); err != nil {
			logger.WithError(err).Error("Failed to send import report")
		}
	}

	logger.WithFields(logrus.Fields{
		"new":      report.New,
		"updated":  report.Updated,
		"archived": report.Archived,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("Import run completed")

	return report, nil
}

// fetchCandidates loads the candidate studies: a single record in manual
// single-id mode, otherwise the full paginated sweep with archived and
// trashed ids excluded.
func (s *Service) fetchCandidates(ctx context.Context, opts RunOptions) ([]registry.FullStudy, int, error) {
	s.progress.Update("fetching", 0, 0, nil)

	if opts.NCTID != "" {
		study, err := s.single.FetchStudy(ctx, strings.ToUpper(opts.NCTID))
		if err != nil {
			s.logger.WithError(err).WithField("nct_id", opts.NCTID).Error("Failed to fetch single study")
			return nil, 0, nil
		}
		if study == nil {
			s.logger.WithField("nct_id", opts.NCTID).Warn("No study found for external id")
			return nil, 0, nil
		}
		return []registry.FullStudy{*study}, 1, nil
	}

	expr := registry.BuildExpr(&s.cfg.Registry)
	studies, total, err := s.sweep.FetchAll(ctx, expr)
	if err != nil {
		return nil, 0, err
	}

	inactiveSet := make(map[string]bool)
	for _, status := range []models.PostStatus{models.StatusArchive, models.StatusTrash} {
		ids, err := s.store.ListExternalIDsByStatus(ctx, models.PostTypeTrial, status)
		if err != nil {
			s.logger.WithError(err).WithField("status", status).Error("Failed to list inactive ids, sweep will include them")
			continue
		}
		for _, id := range ids {
			inactiveSet[id] = true
		}
	}

	return s.filter.ExcludeInactive(studies, inactiveSet), total, nil
}

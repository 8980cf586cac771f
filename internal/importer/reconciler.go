package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/registry"
	"github.com/trialsite/trial-importer/internal/store"
)

// Taxonomies written by the reconciler.
const (
	TaxonomyCondition = "condition"
	TaxonomyKeyword   = "keyword"
	TaxonomyStatus    = "trial-status"
	TaxonomyDrug      = "drug"
	TaxonomyAgeRange  = "age-range"
)

// Reconciler applies one parsed trial to the content store: lookup by
// external id, status gate, base-record upsert, field diff, and term
// assignment. One reconciler instance serves one import run.
type Reconciler struct {
	store      store.Store
	filter     *registry.FilterEngine
	cfg        *config.ImportConfig
	fieldGroup *models.FieldGroup
	logger     *logrus.Logger
}

// NewReconciler creates a reconciler for one run with a loaded field-group
// schema.
func NewReconciler(s store.Store, filter *registry.FilterEngine, cfg *config.ImportConfig, fieldGroup *models.FieldGroup, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:      s,
		filter:     filter,
		cfg:        cfg,
		fieldGroup: fieldGroup,
		logger:     logger,
	}
}

// Reconcile runs the per-record state machine and returns the record's
// result. A record failure never aborts the batch: persistence errors
// surface as a failed result, not an error.
func (r *Reconciler) Reconcile(ctx context.Context, trial *models.Trial, report *models.ImportReport) models.ImportResult {
	logger := r.logger.WithField("nct_id", trial.NCTID)

	postID, err := r.store.FindByExternalID(ctx, models.PostTypeTrial, trial.NCTID)
	if err != nil {
		logger.WithError(err).Error("Failed to look up trial")
		return failedResult(trial, err)
	}

	allowed := r.filter.StatusAllowed(trial.Status)

	// A disallowed status on a never-imported record is the one case where
	// nothing is persisted.
	if !allowed && postID == 0 {
		logger.WithField("status", trial.Status).Info("Status not in allow-list, record not imported")
		return models.ImportResult{
			Name:       trial.Title,
			ExternalID: trial.NCTID,
			Message:    fmt.Sprintf("status %q not in allow-list", trial.Status),
			Status:     models.ResultNotImported,
		}
	}

	if !allowed {
		return r.archive(ctx, postID, trial, logger)
	}

	if postID == 0 {
		return r.create(ctx, trial, logger)
	}

	return r.update(ctx, postID, trial, report, logger)
}

// archive soft-deletes an existing trial whose upstream status fell out of
// the allow-list. Meta and terms stay queryable; the post-transition hook
// clears the status terms.
func (r *Reconciler) archive(ctx context.Context, postID int64, trial *models.Trial, logger *logrus.Entry) models.ImportResult {
	post, err := r.store.GetPost(ctx, postID)
	if err != nil || post == nil {
		logger.WithError(err).Error("Failed to load trial for archiving")
		return failedResult(trial, err)
	}

	if post.Status == models.StatusTrash {
		logger.Info("Trial is trashed, leaving untouched")
		return models.ImportResult{
			PostID:     postID,
			Name:       trial.Title,
			ExternalID: trial.NCTID,
			Message:    "trashed, not reimported",
			Status:     models.ResultNotImported,
		}
	}

	if post.Status != models.StatusArchive {
		post.Status = models.StatusArchive
		if err := r.store.UpdatePost(ctx, post); err != nil {
			logger.WithError(err).Error("Failed to archive trial")
			return failedResult(trial, err)
		}
		if err := r.onArchived(ctx, postID); err != nil {
			logger.WithError(err).Error("Archive transition hook failed")
		}
	}

	r.assignTerms(ctx, postID, trial, false, logger)

	logger.WithField("status", trial.Status).Info("Trial archived")
	return models.ImportResult{
		PostID:     postID,
		Name:       trial.Title,
		ExternalID: trial.NCTID,
		Message:    fmt.Sprintf("archived: status %q not in allow-list", trial.Status),
		Status:     models.ResultArchived,
	}
}

// onArchived is the post-transition hook for the Active -> Archived
// transition.
func (r *Reconciler) onArchived(ctx context.Context, postID int64) error {
	return r.store.SetTerms(ctx, postID, TaxonomyStatus, nil, false)
}

// create persists a first-seen trial. New records start as drafts and are
// never auto-published.
func (r *Reconciler) create(ctx context.Context, trial *models.Trial, logger *logrus.Entry) models.ImportResult {
	postID, err := r.store.CreatePost(ctx, &models.Post{
		Type:       models.PostTypeTrial,
		Status:     models.StatusDraft,
		Title:      trial.Title,
		Content:    trial.Summary,
		Slug:       strings.ToLower(trial.NCTID),
		ExternalID: trial.NCTID,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create trial")
		return failedResult(trial, err)
	}

	for _, desc := range r.fieldGroup.Fields {
		value := fieldValue(trial, desc)
		if value == "" {
			continue
		}
		if err := r.store.SetField(ctx, postID, desc.Name, value); err != nil {
			logger.WithError(err).WithField("field", desc.Name).Error("Failed to set field")
		}
	}

	r.assignTerms(ctx, postID, trial, true, logger)

	logger.Info("Trial created as draft")
	return models.ImportResult{
		PostID:     postID,
		Name:       trial.Title,
		ExternalID: trial.NCTID,
		Message:    "created",
		Status:     models.ResultCreated,
	}
}

// update diffs an existing trial against the freshly parsed record. A
// previously archived id that reappears with an allowed status re-enters
// as a draft.
func (r *Reconciler) update(ctx context.Context, postID int64, trial *models.Trial, report *models.ImportReport, logger *logrus.Entry) models.ImportResult {
	post, err := r.store.GetPost(ctx, postID)
	if err != nil || post == nil {
		logger.WithError(err).Error("Failed to load trial for update")
		return failedResult(trial, err)
	}

	// Operator-trashed posts are never resurrected by an import; restoring
	// from trash is a manual content-store operation.
	if post.Status == models.StatusTrash {
		logger.Info("Trial is trashed, leaving untouched")
		return models.ImportResult{
			PostID:     postID,
			Name:       trial.Title,
			ExternalID: trial.NCTID,
			Message:    "trashed, not reimported",
			Status:     models.ResultNotImported,
		}
	}

	if post.Status == models.StatusArchive {
		post.Status = models.StatusDraft
		logger.Info("Archived trial reappeared with allowed status, restoring as draft")
	}
	post.Content = trial.Summary
	if err := r.store.UpdatePost(ctx, post); err != nil {
		logger.WithError(err).Error("Failed to update trial")
		return failedResult(trial, err)
	}

	changes := r.diffFields(ctx, postID, trial, report, logger)
	r.assignTerms(ctx, postID, trial, true, logger)

	status := models.ResultSkipped
	message := "no changes"
	if changes > 0 {
		status = models.ResultUpdated
		message = fmt.Sprintf("%d field(s) changed", changes)
	}
	return models.ImportResult{
		PostID:     postID,
		Name:       trial.Title,
		ExternalID: trial.NCTID,
		Message:    message,
		Status:     status,
	}
}

// diffFields compares every declared field against the stored value. A
// change is staged only when both values are non-empty and differ: a
// populated value is never overwritten with an empty one, and a field that
// was always empty never raises a change. Empty stored values are
// populated silently. Staged changes are persisted only under the "apply"
// diff policy.
func (r *Reconciler) diffFields(ctx context.Context, postID int64, trial *models.Trial, report *models.ImportReport, logger *logrus.Entry) int {
	changes := 0
	for _, desc := range r.fieldGroup.Fields {
		newValue := fieldValue(trial, desc)
		current, err := r.store.GetField(ctx, postID, desc.Name)
		if err != nil {
			logger.WithError(err).WithField("field", desc.Name).Error("Failed to read field")
			continue
		}

		switch {
		case current == "" && newValue != "":
			if err := r.store.SetField(ctx, postID, desc.Name, newValue); err != nil {
				logger.WithError(err).WithField("field", desc.Name).Error("Failed to populate field")
			}
		case current != "" && newValue != "" && current != newValue:
			applied := false
			if r.cfg.DiffPolicy == config.DiffPolicyApply {
				if err := r.store.SetField(ctx, postID, desc.Name, newValue); err != nil {
					logger.WithError(err).WithField("field", desc.Name).Error("Failed to apply field change")
				} else {
					applied = true
				}
			}
			changes++
			if report != nil {
				report.StagedChanges = append(report.StagedChanges, models.FieldChange{
					ExternalID: trial.NCTID,
					Field:      desc.Name,
					OldValue:   current,
					NewValue:   newValue,
					Applied:    applied,
				})
			}
		}
	}
	return changes
}

// assignTerms writes the taxonomy associations for a trial. Status terms
// are written only for allowed records; age-range terms are cleared and
// re-assigned every run since the configured ranges may change.
func (r *Reconciler) assignTerms(ctx context.Context, postID int64, trial *models.Trial, statusAllowed bool, logger *logrus.Entry) {
	set := func(taxonomy string, terms []string) {
		if err := r.store.SetTerms(ctx, postID, taxonomy, terms, false); err != nil {
			logger.WithError(err).WithField("taxonomy", taxonomy).Error("Failed to set terms")
		}
	}

	set(TaxonomyCondition, trial.Conditions)
	set(TaxonomyKeyword, trial.Keywords)
	if statusAllowed && trial.Status != "" {
		set(TaxonomyStatus, []string{trial.Status})
	}
	if len(trial.Drugs) > 0 {
		set(TaxonomyDrug, trial.Drugs)
	}
	if ranges := r.resolveAgeRanges(trial); ranges != nil {
		set(TaxonomyAgeRange, ranges)
	}
}

// resolveAgeRanges returns the configured age buckets overlapping the
// trial's age span, or nil when the registry supplied no age restriction.
func (r *Reconciler) resolveAgeRanges(trial *models.Trial) []string {
	if trial.MinimumAge == models.DefaultMinimumAge && trial.MaximumAge == models.DefaultMaximumAge {
		return nil
	}
	var names []string
	for _, ar := range r.cfg.AgeRanges {
		if trial.MinimumAge <= ar.Max && trial.MaximumAge >= ar.Min {
			names = append(names, ar.Name)
		}
	}
	return names
}

// fieldValue maps a field descriptor to the trial's parsed value. Repeater
// fields join their per-entry values; scalar fields map one attribute.
func fieldValue(trial *models.Trial, desc models.FieldDescriptor) string {
	if desc.Type == models.FieldRepeater {
		return repeaterValue(trial, desc.Name)
	}
	switch desc.Name {
	case "official_title":
		return trial.OfficialTitle
	case "brief_title":
		return trial.BriefTitle
	case "sponsor":
		return trial.Sponsor
	case "trial_status":
		return trial.Status
	case "start_date":
		return trial.StartDate
	case "primary_completion_date":
		return trial.PrimaryCompletionDate
	case "completion_date":
		return trial.CompletionDate
	case "minimum_age":
		return fmt.Sprintf("%d", trial.MinimumAge)
	case "maximum_age":
		return fmt.Sprintf("%d", trial.MaximumAge)
	case "gender":
		return trial.Gender
	case "protocol_name":
		return trial.ProtocolName
	case "eudract_number":
		return trial.EudractNumber
	case "summary":
		return trial.Summary
	default:
		return ""
	}
}

func repeaterValue(trial *models.Trial, name string) string {
	switch name {
	case "secondary_ids":
		return strings.Join(trial.SecondaryIDs, "|")
	case "drugs":
		return strings.Join(trial.Drugs, "|")
	case "phases":
		return strings.Join(trial.Phases, "|")
	case "conditions":
		return strings.Join(trial.Conditions, "|")
	case "keywords":
		return strings.Join(trial.Keywords, "|")
	default:
		return ""
	}
}

func failedResult(trial *models.Trial, err error) models.ImportResult {
	message := "persistence failure"
	if err != nil {
		message = err.Error()
	}
	return models.ImportResult{
		Name:       trial.Title,
		ExternalID: trial.NCTID,
		Message:    message,
		Status:     models.ResultFailed,
	}
}

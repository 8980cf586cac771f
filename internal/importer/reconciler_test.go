package importer

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/registry"
	"github.com/trialsite/trial-importer/internal/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testImportConfig() *config.ImportConfig {
	return &config.ImportConfig{
		DiffPolicy: config.DiffPolicyAudit,
		AgeRanges: []config.AgeRange{
			{Name: "child", Min: 0, Max: 17},
			{Name: "adult", Min: 18, Max: 64},
			{Name: "senior", Min: 65, Max: 999},
		},
	}
}

func testFieldGroup() *models.FieldGroup {
	return &models.FieldGroup{Fields: []models.FieldDescriptor{
		{Name: "sponsor", Type: models.FieldScalar},
		{Name: "trial_status", Type: models.FieldScalar},
		{Name: "start_date", Type: models.FieldScalar},
		{Name: "eudract_number", Type: models.FieldScalar},
		{Name: "phases", Type: models.FieldRepeater, Subfields: []models.FieldDescriptor{
			{Name: "phase", Type: models.FieldScalar},
		}},
	}}
}

func testFilter() *registry.FilterEngine {
	return registry.NewFilterEngine(&config.RegistryConfig{
		AllowedStatuses:  []string{"Recruiting", "Active, not recruiting"},
		LocationStatuses: []string{"Recruiting"},
	}, testLogger())
}

func newTestReconciler(s store.Store) *Reconciler {
	return NewReconciler(s, testFilter(), testImportConfig(), testFieldGroup(), testLogger())
}

func recruitingTrial() *models.Trial {
	return &models.Trial{
		NCTID:      "NCT01234567",
		Title:      "A Study of Drug X",
		Sponsor:    "Acme Pharma",
		Status:     "Recruiting",
		StartDate:  "January 2026",
		Summary:    "Summary text.",
		Conditions: []string{"Melanoma"},
		Keywords:   []string{"immunotherapy"},
		Phases:     []string{"Phase 2", "Phase 3"},
		Drugs:      []string{"Pembrolizumab"},
		MinimumAge: 18,
		MaximumAge: 75,
	}
}

func TestReconcileCreate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)
	report := &models.ImportReport{}

	result := rec.Reconcile(ctx, recruitingTrial(), report)
	require.Equal(t, models.ResultCreated, result.Status)
	require.NotZero(t, result.PostID)

	post, err := mem.GetPost(ctx, result.PostID)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, models.StatusDraft, post.Status, "new records must never auto-publish")
	assert.Equal(t, "nct01234567", post.Slug)
	assert.Equal(t, "NCT01234567", post.ExternalID)

	sponsor, _ := mem.GetField(ctx, result.PostID, "sponsor")
	assert.Equal(t, "Acme Pharma", sponsor)
	phases, _ := mem.GetField(ctx, result.PostID, "phases")
	assert.Equal(t, "Phase 2|Phase 3", phases)

	conditions, _ := mem.GetTerms(ctx, result.PostID, TaxonomyCondition)
	assert.Equal(t, []string{"Melanoma"}, conditions)
	statuses, _ := mem.GetTerms(ctx, result.PostID, TaxonomyStatus)
	assert.Equal(t, []string{"Recruiting"}, statuses)
	ages, _ := mem.GetTerms(ctx, result.PostID, TaxonomyAgeRange)
	assert.Equal(t, []string{"adult", "senior"}, ages)
}

func TestReconcileDisallowedNewRecord(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)

	trial := recruitingTrial()
	trial.Status = "Completed"

	result := rec.Reconcile(ctx, trial, &models.ImportReport{})
	assert.Equal(t, models.ResultNotImported, result.Status)

	posts, err := mem.ListPosts(ctx, models.PostTypeTrial)
	require.NoError(t, err)
	assert.Empty(t, posts, "a disallowed never-imported record must persist nothing")
}

func TestReconcileArchive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)

	result := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})
	require.Equal(t, models.ResultCreated, result.Status)
	postID := result.PostID

	trial := recruitingTrial()
	trial.Status = "Terminated"
	result = rec.Reconcile(ctx, trial, &models.ImportReport{})
	assert.Equal(t, models.ResultArchived, result.Status)

	post, err := mem.GetPost(ctx, postID)
	require.NoError(t, err)
	require.NotNil(t, post, "archive is a soft delete, the post must remain")
	assert.Equal(t, models.StatusArchive, post.Status)

	statuses, _ := mem.GetTerms(ctx, postID, TaxonomyStatus)
	assert.Empty(t, statuses, "the archive transition must clear status terms")
	conditions, _ := mem.GetTerms(ctx, postID, TaxonomyCondition)
	assert.Equal(t, []string{"Melanoma"}, conditions, "meta and other terms stay queryable")
}

func TestReconcileArchivedReappearance(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)

	created := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})
	terminated := recruitingTrial()
	terminated.Status = "Terminated"
	rec.Reconcile(ctx, terminated, &models.ImportReport{})

	result := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})
	assert.Contains(t, []string{models.ResultUpdated, models.ResultSkipped}, result.Status)

	post, err := mem.GetPost(ctx, created.PostID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, post.Status, "a reappearing archived trial re-enters as draft")
}

func TestReconcileTrashedUntouched(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)

	created := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})
	post, err := mem.GetPost(ctx, created.PostID)
	require.NoError(t, err)
	post.Status = models.StatusTrash
	require.NoError(t, mem.UpdatePost(ctx, post))

	t.Run("allowed status does not restore", func(t *testing.T) {
		result := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})
		assert.Equal(t, models.ResultNotImported, result.Status)
	})

	t.Run("disallowed status does not archive", func(t *testing.T) {
		terminated := recruitingTrial()
		terminated.Status = "Terminated"
		result := rec.Reconcile(ctx, terminated, &models.ImportReport{})
		assert.Equal(t, models.ResultNotImported, result.Status)
	})

	post, err = mem.GetPost(ctx, created.PostID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrash, post.Status)
}

func TestDiffFields(t *testing.T) {
	ctx := context.Background()

	t.Run("audit stages without applying", func(t *testing.T) {
		mem := store.NewMemStore()
		rec := newTestReconciler(mem)

		created := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})

		changed := recruitingTrial()
		changed.Sponsor = "Beta Biotech"
		report := &models.ImportReport{}
		result := rec.Reconcile(ctx, changed, report)
		assert.Equal(t, models.ResultUpdated, result.Status)

		require.Len(t, report.StagedChanges, 1)
		change := report.StagedChanges[0]
		assert.Equal(t, "sponsor", change.Field)
		assert.Equal(t, "Acme Pharma", change.OldValue)
		assert.Equal(t, "Beta Biotech", change.NewValue)
		assert.False(t, change.Applied)

		sponsor, _ := mem.GetField(ctx, created.PostID, "sponsor")
		assert.Equal(t, "Acme Pharma", sponsor, "audit policy must not persist the change")
	})

	t.Run("apply persists the change", func(t *testing.T) {
		mem := store.NewMemStore()
		cfg := testImportConfig()
		cfg.DiffPolicy = config.DiffPolicyApply
		rec := NewReconciler(mem, testFilter(), cfg, testFieldGroup(), testLogger())

		created := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})

		changed := recruitingTrial()
		changed.Sponsor = "Beta Biotech"
		report := &models.ImportReport{}
		rec.Reconcile(ctx, changed, report)

		require.Len(t, report.StagedChanges, 1)
		assert.True(t, report.StagedChanges[0].Applied)
		sponsor, _ := mem.GetField(ctx, created.PostID, "sponsor")
		assert.Equal(t, "Beta Biotech", sponsor)
	})

	t.Run("empty incoming never overwrites", func(t *testing.T) {
		mem := store.NewMemStore()
		rec := newTestReconciler(mem)

		created := rec.Reconcile(ctx, recruitingTrial(), &models.ImportReport{})

		blanked := recruitingTrial()
		blanked.Sponsor = ""
		report := &models.ImportReport{}
		result := rec.Reconcile(ctx, blanked, report)
		assert.Equal(t, models.ResultSkipped, result.Status)
		assert.Empty(t, report.StagedChanges)

		sponsor, _ := mem.GetField(ctx, created.PostID, "sponsor")
		assert.Equal(t, "Acme Pharma", sponsor)
	})

	t.Run("empty stored populated silently", func(t *testing.T) {
		mem := store.NewMemStore()
		rec := newTestReconciler(mem)

		partial := recruitingTrial()
		partial.EudractNumber = ""
		created := rec.Reconcile(ctx, partial, &models.ImportReport{})

		filled := recruitingTrial()
		filled.EudractNumber = "2020-001234-56"
		report := &models.ImportReport{}
		result := rec.Reconcile(ctx, filled, report)
		assert.Equal(t, models.ResultSkipped, result.Status, "silent population raises no change")
		assert.Empty(t, report.StagedChanges)

		eudract, _ := mem.GetField(ctx, created.PostID, "eudract_number")
		assert.Equal(t, "2020-001234-56", eudract)
	})
}

func TestResolveAgeRanges(t *testing.T) {
	mem := store.NewMemStore()
	rec := newTestReconciler(mem)

	t.Run("sentinel defaults yield none", func(t *testing.T) {
		trial := recruitingTrial()
		trial.MinimumAge = models.DefaultMinimumAge
		trial.MaximumAge = models.DefaultMaximumAge
		assert.Nil(t, rec.resolveAgeRanges(trial))
	})

	t.Run("span overlapping buckets", func(t *testing.T) {
		trial := recruitingTrial()
		trial.MinimumAge = 10
		trial.MaximumAge = 40
		assert.Equal(t, []string{"child", "adult"}, rec.resolveAgeRanges(trial))
	})

	t.Run("single bound set still resolves", func(t *testing.T) {
		trial := recruitingTrial()
		trial.MinimumAge = 65
		trial.MaximumAge = models.DefaultMaximumAge
		assert.Equal(t, []string{"senior"}, rec.resolveAgeRanges(trial))
	})
}

func TestReportAdd(t *testing.T) {
	report := &models.ImportReport{}
	report.Add(models.ImportResult{Status: models.ResultCreated})
	report.Add(models.ImportResult{Status: models.ResultCreated})
	report.Add(models.ImportResult{Status: models.ResultArchived})
	report.Add(models.ImportResult{Status: models.ResultNotImported})

	assert.Equal(t, 2, report.New)
	assert.Equal(t, 1, report.Archived)
	assert.Equal(t, 1, report.NotImported)
	assert.Len(t, report.Results, 4)
}

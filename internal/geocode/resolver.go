package geocode

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/internal/store"
)

// TaxonomyTrialRef is the taxonomy carrying back-references from a
// location to the trials that list it.
const TaxonomyTrialRef = "trial-ref"

// Geocoder resolves a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Resolver deduplicates trial locations, geocodes new ones, and maintains
// the trial back-references.
type Resolver struct {
	store  store.Store
	client Geocoder
	logger *logrus.Logger
}

// NewResolver creates a location resolver.
func NewResolver(s store.Store, client Geocoder, logger *logrus.Logger) *Resolver {
	return &Resolver{store: s, client: client, logger: logger}
}

// ResolveLocations upserts every location of a trial in source order,
// attaching the trial's external id as a back-reference and geocoding
// locations that have never resolved. A location is geocoded at most once:
// a resolved location is never re-queried. Geocode failures leave the
// location unresolved for retry on the next run and never fail the run.
func (r *Resolver) ResolveLocations(ctx context.Context, trial *models.Trial, report *models.ImportReport) {
	for _, loc := range trial.Locations {
		if err := r.resolveOne(ctx, trial.NCTID, loc, report); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"nct_id":   trial.NCTID,
				"facility": loc.Facility,
			}).Error("Failed to persist location")
		}
	}
}

func (r *Resolver) resolveOne(ctx context.Context, nctID string, loc *models.Location, report *models.ImportReport) error {
	postID, err := r.store.FindByExternalID(ctx, models.PostTypeLocation, loc.Slug)
	if err != nil {
		return err
	}

	if postID == 0 {
		postID, err = r.store.CreatePost(ctx, &models.Post{
			Type:       models.PostTypeLocation,
			Status:     models.StatusPublish,
			Title:      loc.Facility,
			Slug:       loc.Slug,
			ExternalID: loc.Slug,
		})
		if err != nil {
			return err
		}
	}

	status, err := r.store.GetField(ctx, postID, "geocode_status")
	if err != nil {
		return err
	}

	if models.GeocodeStatus(status) == models.GeocodeResolved {
		// Already resolved: refresh only the per-run recruiting status and
		// leave the stored coordinates alone.
		if err := r.store.SetField(ctx, postID, "recruiting_status", loc.RecruitingState); err != nil {
			return err
		}
	} else {
		if err := r.writeLocationFields(ctx, postID, loc); err != nil {
			return err
		}
		r.geocodeLocation(ctx, postID, loc, report)
	}

	// Attach this trial's back-reference without disturbing the others.
	return r.store.SetTerms(ctx, postID, TaxonomyTrialRef, []string{nctID}, true)
}

// geocodeLocation runs the two-tier geocode: the full facility address
// first, then the city/state/zip/country fallback when the facility string
// cannot be resolved.
func (r *Resolver) geocodeLocation(ctx context.Context, postID int64, loc *models.Location, report *models.ImportReport) {
	result, err := r.client.Geocode(ctx, joinAddress(loc.Facility, loc.City, loc.State, loc.Zip, loc.Country))
	if err != nil {
		r.logger.WithField("facility", loc.Facility).Debug("Facility geocode failed, retrying without facility")
		result, err = r.client.Geocode(ctx, joinAddress(loc.City, loc.State, loc.Zip, loc.Country))
	}
	if err != nil {
		r.logger.WithError(err).WithField("facility", loc.Facility).Warn("Geocode failed, leaving location unresolved")
		loc.GeocodeStatus = models.GeocodeFailed
		if report != nil {
			report.GeocodeFailures++
		}
		if ferr := r.store.SetField(ctx, postID, "geocode_status", string(models.GeocodeFailed)); ferr != nil {
			r.logger.WithError(ferr).Error("Failed to persist geocode status")
		}
		return
	}

	mergeResult(loc, result)
	loc.GeocodeStatus = models.GeocodeResolved
	if report != nil {
		report.LocationsGeocoded++
	}

	if err := r.writeLocationFields(ctx, postID, loc); err != nil {
		r.logger.WithError(err).Error("Failed to persist geocoded location")
	}
}

// mergeResult merges geocoder output into the source location. Source
// fields are authoritative for categorical values; the geocoder is
// authoritative only for coordinates and genuinely missing components.
func mergeResult(loc *models.Location, result *Result) {
	loc.Latitude = result.Latitude
	loc.Longitude = result.Longitude
	if loc.City == "" {
		loc.City = result.Components[ComponentLocality]
	}
	if loc.State == "" {
		loc.State = result.Components[ComponentAdminArea]
	}
	if loc.Zip == "" {
		loc.Zip = result.Components[ComponentPostalCode]
	}
	if loc.Country == "" {
		loc.Country = result.Components[ComponentCountry]
	}
}

func (r *Resolver) writeLocationFields(ctx context.Context, postID int64, loc *models.Location) error {
	fields := map[string]string{
		"facility":          loc.Facility,
		"city":              loc.City,
		"state":             loc.State,
		"zip":               loc.Zip,
		"country":           loc.Country,
		"phone":             loc.Phone,
		"recruiting_status": loc.RecruitingState,
		"languages":         strings.Join(loc.Languages, ","),
		"latitude":          loc.Latitude,
		"longitude":         loc.Longitude,
	}
	for key, value := range fields {
		if err := r.store.SetField(ctx, postID, key, value); err != nil {
			return err
		}
	}
	if loc.GeocodeStatus != "" {
		return r.store.SetField(ctx, postID, "geocode_status", string(loc.GeocodeStatus))
	}
	return nil
}

// RemoveTrialRefs detaches a trashed trial from every location referencing
// it. A location whose last reference is removed is deleted; otherwise only
// the reference goes.
func (r *Resolver) RemoveTrialRefs(ctx context.Context, nctID string) error {
	slug := strings.ToLower(nctID)
	posts, err := r.store.ListPostsWithTerm(ctx, models.PostTypeLocation, TaxonomyTrialRef, slug)
	if err != nil {
		return err
	}

	for _, post := range posts {
		refs, err := r.store.GetTerms(ctx, post.ID, TaxonomyTrialRef)
		if err != nil {
			return err
		}
		if len(refs) <= 1 {
			if err := r.store.DeletePost(ctx, post.ID); err != nil {
				return err
			}
			r.logger.WithField("facility", post.Title).Info("Deleted location with no remaining trial references")
			continue
		}
		if err := r.store.RemoveTerm(ctx, post.ID, TaxonomyTrialRef, slug); err != nil {
			return err
		}
	}

	return nil
}

// joinAddress joins the non-empty address parts with commas.
func joinAddress(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

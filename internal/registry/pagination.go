package registry

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
)

// PageFetcher fetches one rank window of studies.
type PageFetcher interface {
	FetchPage(ctx context.Context, expr string, minRank, maxRank int) (*FullStudiesResponse, error)
}

// PaginationDriver drives the sequential page-fetch loop. A failed page is
// logged and skipped; the run continues with the remaining pages.
type PaginationDriver struct {
	client   PageFetcher
	pageSize int
	logger   *logrus.Logger
}

// NewPaginationDriver creates a pagination driver with the given page size.
func NewPaginationDriver(client PageFetcher, pageSize int, logger *logrus.Logger) *PaginationDriver {
	return &PaginationDriver{
		client:   client,
		pageSize: pageSize,
		logger:   logger,
	}
}

// LoopCount computes how many page fetches a total-found count requires:
// round(total/pageSize), minimum 1.
func LoopCount(totalFound, pageSize int) int {
	n := int(math.Round(float64(totalFound) / float64(pageSize)))
	if n < 1 {
		n = 1
	}
	return n
}

// FetchAll fetches every page for the expression in ascending rank order
// and merges the per-page results.
func (d *PaginationDriver) FetchAll(ctx context.Context, expr string) ([]FullStudy, int, error) {
	// The first page supplies the total-found count that sizes the whole
	// loop, so unlike later pages it cannot simply be skipped: it gets one
	// re-attempt, then the run yields an empty result.
	first, err := d.client.FetchPage(ctx, expr, 1, d.pageSize)
	if err != nil && ctx.Err() == nil {
		d.logger.WithError(err).Warn("Failed to fetch first registry page, retrying")
		first, err = d.client.FetchPage(ctx, expr, 1, d.pageSize)
	}
	if err != nil {
		if ctx.Err() != nil {
			return []FullStudy{}, 0, ctx.Err()
		}
		d.logger.WithError(err).Error("Failed to fetch first registry page, skipping run page loop")
		return []FullStudy{}, 0, nil
	}

	total := first.NStudiesFound
	if total == 0 {
		d.logger.Info("No studies found for search expression")
		return []FullStudy{}, 0, nil
	}

	studies := append([]FullStudy{}, first.FullStudies...)
	loops := LoopCount(total, d.pageSize)

	for i := 2; i <= loops; i++ {
		minRank := (i-1)*d.pageSize + 1
		maxRank := i * d.pageSize

		page, err := d.client.FetchPage(ctx, expr, minRank, maxRank)
		if err != nil {
			if ctx.Err() != nil {
				return studies, total, ctx.Err()
			}
			d.logger.WithError(err).WithFields(logrus.Fields{
				"page":     i,
				"min_rank": minRank,
				"max_rank": maxRank,
			}).Error("Failed to fetch registry page, skipping")
			continue
		}

		studies = append(studies, page.FullStudies...)
		d.logger.WithFields(logrus.Fields{
			"page":          i,
			"total_pages":   loops,
			"studies_found": len(page.FullStudies),
		}).Info("Fetched registry page")
	}

	return studies, total, nil
}

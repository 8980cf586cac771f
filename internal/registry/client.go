package registry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	apperrors "github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/httpclient"
)

// Client queries the registry's full-studies API.
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  *logrus.Logger
}

// NewClient creates a registry API client using the shared retrying
// transport.
func NewClient(cfg *config.RegistryConfig, logger *logrus.Logger) *Client {
	return &Client{
		http: httpclient.New(cfg.RequestTimeout, logger,
			httpclient.WithRetryConfig(cfg.MaxRetries, cfg.RetryBackoff)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// BuildExpr assembles the free-text boolean search expression from the
// configured allow/deny lists. Allowed conditions are OR-joined; denied
// conditions, countries and statuses are AND/NOT clauses.
func BuildExpr(cfg *config.RegistryConfig) string {
	var clauses []string

	if len(cfg.AllowedConditions) > 0 {
		clauses = append(clauses, "("+strings.Join(cfg.AllowedConditions, " OR ")+")")
	}
	for _, denied := range cfg.DeniedConditions {
		clauses = append(clauses, "NOT "+denied)
	}
	if len(cfg.AllowedCountries) > 0 {
		countries := make([]string, len(cfg.AllowedCountries))
		for i, c := range cfg.AllowedCountries {
			countries[i] = fmt.Sprintf("SEARCH[Location](AREA[LocationCountry]%s)", c)
		}
		clauses = append(clauses, "("+strings.Join(countries, " OR ")+")")
	}
	if len(cfg.AllowedStatuses) > 0 {
		statuses := make([]string, len(cfg.AllowedStatuses))
		for i, s := range cfg.AllowedStatuses {
			statuses[i] = fmt.Sprintf("AREA[OverallStatus]%q", s)
		}
		clauses = append(clauses, "("+strings.Join(statuses, " OR ")+")")
	}
	if cfg.Sponsor != "" {
		clauses = append(clauses, fmt.Sprintf("AREA[LeadSponsorName]%q", cfg.Sponsor))
	}

	return strings.Join(clauses, " AND ")
}

// FetchPage fetches one rank window of studies for the given expression.
func (c *Client) FetchPage(ctx context.Context, expr string, minRank, maxRank int) (*FullStudiesResponse, error) {
	query := url.Values{}
	query.Set("expr", expr)
	query.Set("min_rnk", strconv.Itoa(minRank))
	query.Set("max_rnk", strconv.Itoa(maxRank))
	query.Set("fmt", "json")

	c.logger.WithFields(logrus.Fields{
		"min_rank": minRank,
		"max_rank": maxRank,
	}).Debug("Fetching registry page")

	var resp QueryResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/full_studies?"+query.Encode(), &resp); err != nil {
		if _, ok := httpclient.IsStatusError(err); ok {
			return nil, apperrors.NewUpstreamError("registry page fetch failed", err)
		}
		return nil, apperrors.NewTransportError("registry page fetch failed", err)
	}

	if resp.FullStudiesResponse == nil {
		return nil, apperrors.NewParseError("registry response missing FullStudiesResponse wrapper", nil)
	}

	return resp.FullStudiesResponse, nil
}

// FetchStudy fetches a single study by external id (manual single-record
// mode). Returns nil when the registry has no such record.
func (c *Client) FetchStudy(ctx context.Context, nctID string) (*FullStudy, error) {
	resp, err := c.FetchPage(ctx, fmt.Sprintf("AREA[NCTId]%s", nctID), 1, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.FullStudies) == 0 {
		return nil, nil
	}
	return &resp.FullStudies[0], nil
}

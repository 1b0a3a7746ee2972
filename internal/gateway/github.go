// Package gateway provides a gateway to the GitHub REST API,
// abstracting away the underlying client and error shapes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/errs"
)

// ReferrerStat is one referring site with its traffic counts.
type ReferrerStat struct {
	Referrer string
	Count    int
	Uniques  int
}

// PathStat is one popular content path with its traffic counts.
// The display title GitHub attaches to each path is not carried; the
// persisted files only keep the path itself.
type PathStat struct {
	Path    string
	Count   int
	Uniques int
}

// RepoCounts holds the current cumulative star and fork totals.
type RepoCounts struct {
	Stars int
	Forks int
}

// TrafficDay is one day of a views or clones time series. GitHub
// reports a trailing window of at most 14 days.
type TrafficDay struct {
	Day     time.Time
	Total   int
	Uniques int
}

// Fetcher defines the behavior of a gateway for fetching repository
// statistics from GitHub. One method per statistic endpoint; each
// returns the raw shape of that endpoint, already freed of the
// client library's types.
type Fetcher interface {
	Referrers(ctx context.Context) ([]ReferrerStat, error)
	Paths(ctx context.Context) ([]PathStat, error)
	Counts(ctx context.Context) (RepoCounts, error)
	Views(ctx context.Context) ([]TrafficDay, error)
	Clones(ctx context.Context) ([]TrafficDay, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	client *github.Client
	target domain.Target
	logger *logrus.Logger
}

// NewGitHubGateway creates a gateway bound to one repository. The
// transport stacks a secondary-rate-limit waiter under the oauth2
// bearer-token layer, so abuse throttling is absorbed by the transport
// while primary rate limit exhaustion still surfaces as an error.
func NewGitHubGateway(target domain.Target, token string, logger *logrus.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(5*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		client: github.NewClient(httpClient),
		target: target,
		logger: logger,
	}, nil
}

func (g *GitHubGateway) Referrers(ctx context.Context) ([]ReferrerStat, error) {
	g.logger.WithField("repo", g.target.String()).Debug("Fetching top referrers...")
	raw, _, err := g.client.Repositories.ListTrafficReferrers(ctx, g.target.Owner, g.target.Repo)
	if err != nil {
		return nil, g.wrap(domain.KindReferrers, err)
	}
	stats := make([]ReferrerStat, 0, len(raw))
	for _, r := range raw {
		stats = append(stats, ReferrerStat{
			Referrer: r.GetReferrer(),
			Count:    r.GetCount(),
			Uniques:  r.GetUniques(),
		})
	}
	return stats, nil
}

func (g *GitHubGateway) Paths(ctx context.Context) ([]PathStat, error) {
	g.logger.WithField("repo", g.target.String()).Debug("Fetching popular paths...")
	raw, _, err := g.client.Repositories.ListTrafficPaths(ctx, g.target.Owner, g.target.Repo)
	if err != nil {
		return nil, g.wrap(domain.KindPaths, err)
	}
	stats := make([]PathStat, 0, len(raw))
	for _, p := range raw {
		stats = append(stats, PathStat{
			Path:    p.GetPath(),
			Count:   p.GetCount(),
			Uniques: p.GetUniques(),
		})
	}
	return stats, nil
}

func (g *GitHubGateway) Counts(ctx context.Context) (RepoCounts, error) {
	g.logger.WithField("repo", g.target.String()).Debug("Fetching star and fork counts...")
	repo, _, err := g.client.Repositories.Get(ctx, g.target.Owner, g.target.Repo)
	if err != nil {
		return RepoCounts{}, g.wrap(domain.KindStarsForks, err)
	}
	return RepoCounts{
		Stars: repo.GetStargazersCount(),
		Forks: repo.GetForksCount(),
	}, nil
}

func (g *GitHubGateway) Views(ctx context.Context) ([]TrafficDay, error) {
	g.logger.WithField("repo", g.target.String()).Debug("Fetching daily views...")
	opts := &github.TrafficBreakdownOptions{Per: "day"}
	raw, _, err := g.client.Repositories.ListTrafficViews(ctx, g.target.Owner, g.target.Repo, opts)
	if err != nil {
		return nil, g.wrap(domain.KindViewsClones, err)
	}
	return trafficDays(raw.Views), nil
}

func (g *GitHubGateway) Clones(ctx context.Context) ([]TrafficDay, error) {
	g.logger.WithField("repo", g.target.String()).Debug("Fetching daily clones...")
	opts := &github.TrafficBreakdownOptions{Per: "day"}
	raw, _, err := g.client.Repositories.ListTrafficClones(ctx, g.target.Owner, g.target.Repo, opts)
	if err != nil {
		return nil, g.wrap(domain.KindViewsClones, err)
	}
	return trafficDays(raw.Clones), nil
}

func trafficDays(data []*github.TrafficData) []TrafficDay {
	days := make([]TrafficDay, 0, len(data))
	for _, d := range data {
		days = append(days, TrafficDay{
			Day:     d.GetTimestamp().Time,
			Total:   d.GetCount(),
			Uniques: d.GetUniques(),
		})
	}
	return days
}

// wrap translates go-github errors into the application's error
// taxonomy, tagged with the statistic kind that triggered them.
func (g *GitHubGateway) wrap(kind domain.Kind, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &errs.RateLimitError{Kind: kind, Reset: rateErr.Rate.Reset.Time, Cause: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &errs.RateLimitError{Kind: kind, RetryAfter: abuseErr.GetRetryAfter(), Cause: err}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &errs.AuthError{Kind: kind, StatusCode: respErr.Response.StatusCode, Cause: err}
		case http.StatusNotFound:
			return &errs.NotFoundError{Kind: kind, Target: g.target, Cause: err}
		}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &errs.MalformedResponseError{Kind: kind, Cause: err}
	}
	return fmt.Errorf("fetch %s: %w", kind, err)
}

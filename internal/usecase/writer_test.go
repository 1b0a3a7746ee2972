package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yatsu/githubstat/internal/domain"
	"github.com/yatsu/githubstat/internal/gateway"
	"github.com/yatsu/githubstat/internal/stat"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It lets us drive the writer without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Referrers(ctx context.Context) ([]gateway.ReferrerStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.ReferrerStat), args.Error(1)
}

func (m *mockFetcher) Paths(ctx context.Context) ([]gateway.PathStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.PathStat), args.Error(1)
}

func (m *mockFetcher) Counts(ctx context.Context) (gateway.RepoCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(gateway.RepoCounts), args.Error(1)
}

func (m *mockFetcher) Views(ctx context.Context) ([]gateway.TrafficDay, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.TrafficDay), args.Error(1)
}

func (m *mockFetcher) Clones(ctx context.Context) ([]gateway.TrafficDay, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.TrafficDay), args.Error(1)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func refDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, "2024-01-02")
	require.NoError(t, err)
	return d
}

func TestWriter_Write_AllSources(t *testing.T) {
	outdir := t.TempDir()
	fetcher := new(mockFetcher)
	fetcher.On("Referrers", mock.Anything).Return([]gateway.ReferrerStat{
		{Referrer: "google.com", Count: 10, Uniques: 3},
	}, nil)
	fetcher.On("Paths", mock.Anything).Return([]gateway.PathStat{
		{Path: "/owner/repo", Count: 5, Uniques: 2},
		{Path: "/owner/repo/issues", Count: 3, Uniques: 1},
	}, nil)
	fetcher.On("Counts", mock.Anything).Return(gateway.RepoCounts{Stars: 12, Forks: 2}, nil)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fetcher.On("Views", mock.Anything).Return([]gateway.TrafficDay{
		{Day: day, Total: 7, Uniques: 3},
		{Day: day.AddDate(0, 0, 1), Total: 4, Uniques: 2},
	}, nil)
	fetcher.On("Clones", mock.Anything).Return([]gateway.TrafficDay{
		{Day: day, Total: 1, Uniques: 1},
	}, nil)

	writer := NewWriter(fetcher, discardLogger())
	outcomes := writer.Write(context.Background(), stat.All(), refDate(t), outdir)

	require.Len(t, outcomes, 4)
	expectedCounts := map[domain.Kind]int{
		domain.KindReferrers:   1,
		domain.KindPaths:       2,
		domain.KindStarsForks:  1,
		domain.KindViewsClones: 2,
	}
	for _, o := range outcomes {
		assert.False(t, o.Failed(), "unexpected failure for %s: %v", o.Kind, o.Err)
		assert.Equal(t, expectedCounts[o.Kind], o.Count, "row count for %s", o.Kind)
		assert.FileExists(t, o.Path)
		assert.Equal(t, filepath.Join(outdir, "2024_githubstat_"+string(o.Kind)+".csv"), o.Path)
	}
	fetcher.AssertExpectations(t)
}

func TestWriter_Write_PartialFailureIsolation(t *testing.T) {
	outdir := t.TempDir()
	fetcher := new(mockFetcher)
	fetcher.On("Referrers", mock.Anything).Return([]gateway.ReferrerStat{
		{Referrer: "google.com", Count: 10, Uniques: 3},
	}, nil)
	fetcher.On("Paths", mock.Anything).Return(nil, errors.New("github api error"))
	fetcher.On("Counts", mock.Anything).Return(gateway.RepoCounts{Stars: 12, Forks: 2}, nil)

	sources := []stat.Source{stat.Referrers{}, stat.Paths{}, stat.StarsForks{}}
	writer := NewWriter(fetcher, discardLogger())
	outcomes := writer.Write(context.Background(), sources, refDate(t), outdir)

	require.Len(t, outcomes, 3)
	assert.False(t, outcomes[0].Failed())
	assert.True(t, outcomes[1].Failed())
	assert.ErrorContains(t, outcomes[1].Err, "github api error")
	assert.False(t, outcomes[2].Failed())

	// The failing source's file is never created; the others are.
	assert.FileExists(t, outcomes[0].Path)
	_, err := os.Stat(outcomes[1].Path)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, outcomes[2].Path)
	fetcher.AssertExpectations(t)
}

func TestWriter_Write_SecondRunIsIdempotent(t *testing.T) {
	outdir := t.TempDir()
	fetcher := new(mockFetcher)
	fetcher.On("Counts", mock.Anything).Return(gateway.RepoCounts{Stars: 12, Forks: 2}, nil)

	sources := []stat.Source{stat.StarsForks{}}
	writer := NewWriter(fetcher, discardLogger())

	first := writer.Write(context.Background(), sources, refDate(t), outdir)
	require.False(t, first[0].Failed())
	beforeBytes, err := os.ReadFile(first[0].Path)
	require.NoError(t, err)

	second := writer.Write(context.Background(), sources, refDate(t), outdir)
	require.False(t, second[0].Failed())
	afterBytes, err := os.ReadFile(second[0].Path)
	require.NoError(t, err)

	assert.Equal(t, first[0].Count, second[0].Count)
	assert.Equal(t, beforeBytes, afterBytes)
}

func TestWriter_Write_ConcurrentSources(t *testing.T) {
	outdir := t.TempDir()
	fetcher := new(mockFetcher)
	fetcher.On("Referrers", mock.Anything).Return([]gateway.ReferrerStat{
		{Referrer: "google.com", Count: 10, Uniques: 3},
	}, nil)
	fetcher.On("Paths", mock.Anything).Return([]gateway.PathStat{
		{Path: "/owner/repo", Count: 5, Uniques: 2},
	}, nil)
	fetcher.On("Counts", mock.Anything).Return(gateway.RepoCounts{Stars: 12, Forks: 2}, nil)
	fetcher.On("Views", mock.Anything).Return([]gateway.TrafficDay{}, nil)
	fetcher.On("Clones", mock.Anything).Return([]gateway.TrafficDay{}, nil)

	writer := NewWriter(fetcher, discardLogger(), WithConcurrency(4))
	outcomes := writer.Write(context.Background(), stat.All(), refDate(t), outdir)

	require.Len(t, outcomes, 4)
	for i, o := range outcomes {
		assert.Equal(t, stat.All()[i].Kind(), o.Kind, "outcome order must follow source order")
		assert.False(t, o.Failed(), "unexpected failure for %s: %v", o.Kind, o.Err)
	}
}

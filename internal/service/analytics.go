package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/migralog/backend/internal/cache"
	"github.com/migralog/backend/internal/config"
	"github.com/migralog/backend/internal/normalize"
	"github.com/migralog/backend/pkg/model"
)

// ErrAnalysisDisabled is returned when configuration has switched an
// analysis off.
var ErrAnalysisDisabled = errors.New("analysis disabled by configuration")

// EpisodeSource supplies the immutable episode snapshot the analyzers run
// over. Fetching is the only I/O in an analysis; once the snapshot is in
// hand, computation is synchronous and deterministic.
type EpisodeSource interface {
	FetchEpisodes(ctx context.Context, userID string, from, to *time.Time) ([]model.Episode, error)
}

// AnalyticsCache memoizes computed reports. Implementations must key
// strictly per user and window; see the cache package.
type AnalyticsCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// AnalyticsService runs the analytics core over a user's episode log. Which
// analyses run, and with which windows, comes from the explicit configuration
// object; there is no global state.
type AnalyticsService struct {
	episodes EpisodeSource
	cache    AnalyticsCache
	params   config.AnalyticsConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. cache may be nil.
func NewAnalyticsService(episodes EpisodeSource, analyticsCache AnalyticsCache, params config.AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		episodes: episodes,
		cache:    analyticsCache,
		params:   params,
		logger:   logger,
		now:      time.Now,
	}
}

// Correlations computes the ranked trigger, treatment and symptom analyses
// over the user's episodes, optionally restricted to a date range. Each
// ranked list is truncated to the configured top N.
func (s *AnalyticsService) Correlations(ctx context.Context, userID string, from, to *time.Time) (*CorrelationReport, error) {
	if !s.params.Correlations {
		return nil, ErrAnalysisDisabled
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	key := cache.Key("correlations", userID, from, to, s.params)
	var cached CorrelationReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	episodes, err := s.fetchNormalized(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	report := &CorrelationReport{
		BaselineAvgPain: BaselinePain(episodes),
		Triggers:        topN(AnalyzeTriggerCorrelations(episodes), s.params.TopN),
		Treatments:      topN(AnalyzeTreatmentEffectiveness(episodes), s.params.TopN),
		Symptoms:        topN(AnalyzeSymptomPatterns(episodes), s.params.TopN),
	}

	s.cacheSet(ctx, key, report)
	s.logger.Info("correlation analysis computed",
		zap.String("user_id", userID),
		zap.Int("episode_count", len(episodes)),
		zap.Int("trigger_count", len(report.Triggers)),
	)
	return report, nil
}

// MedicationOveruse assesses the trailing overuse window, 90 days by default
func (s *AnalyticsService) MedicationOveruse(ctx context.Context, userID string) (*OveruseReport, error) {
	if !s.params.MedicationOveruse {
		return nil, ErrAnalysisDisabled
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	now := s.now()
	from := now.AddDate(0, 0, -s.params.OveruseWindowDays)

	key := cache.Key("overuse", userID, &from, &now, s.params)
	var cached OveruseReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	episodes, err := s.fetchNormalized(ctx, userID, &from, &now)
	if err != nil {
		return nil, err
	}

	report := DetectMedicationOveruse(episodes, now)

	s.cacheSet(ctx, key, report)
	s.logger.Info("medication overuse analysis computed",
		zap.String("user_id", userID),
		zap.Int("medication_count", len(report.Medications)),
		zap.Bool("overuse_risk", report.MedicationOveruseRisk),
	)
	return report, nil
}

// Trends compares the trailing configured months of the journal
func (s *AnalyticsService) Trends(ctx context.Context, userID string) (*TrendReport, error) {
	if !s.params.Trends {
		return nil, ErrAnalysisDisabled
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	now := s.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(s.params.TrendMonths - 1), 0)

	key := cache.Key("trends", userID, &from, &now, s.params)
	var cached TrendReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	episodes, err := s.fetchNormalized(ctx, userID, &from, &now)
	if err != nil {
		return nil, err
	}

	report := CompareMonthlyTrends(episodes, s.params.TrendMonths, now)

	s.cacheSet(ctx, key, report)
	s.logger.Info("trend analysis computed",
		zap.String("user_id", userID),
		zap.String("overall_trend", string(report.OverallTrend)),
	)
	return report, nil
}

// fetchNormalized resolves the snapshot and normalizes it once; analyzers
// never see raw episode fields.
func (s *AnalyticsService) fetchNormalized(ctx context.Context, userID string, from, to *time.Time) ([]normalize.NormalizedEpisode, error) {
	raw, err := s.episodes.FetchEpisodes(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("failed to fetch episodes",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("failed to fetch episodes: %w", err)
	}
	return normalize.Episodes(raw), nil
}

// Cache failures degrade to recomputation, never to a failed analysis.
func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.Error(err), zap.String("key", key))
		return false
	}
	return hit
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("analytics cache write failed", zap.Error(err), zap.String("key", key))
	}
}

// topN truncates a ranked list for the presentation boundary
func topN[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

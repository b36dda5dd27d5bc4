package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"soundscore/internal/cache"
	"soundscore/internal/config"
	"soundscore/internal/models"
	"soundscore/internal/repositories"
)

// candidatePoolSize bounds how many friends-of-friends get scored per run
const candidatePoolSize = 200

// RecommendationService produces who-to-follow suggestions from the
// follow graph and review overlap. Weights come from the tunable
// recommendation config.
type RecommendationService struct {
	candidates repositories.RecommendationRepository
	users      repositories.UserRepository
	cache      cache.Cache
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(candidates repositories.RecommendationRepository, users repositories.UserRepository, c cache.Cache) *RecommendationService {
	return &RecommendationService{
		candidates: candidates,
		users:      users,
		cache:      c,
	}
}

// ScoredUser is one suggestion with its combined score
type ScoredUser struct {
	User  models.PublicProfile `json:"user"`
	Score float64              `json:"score"`
}

// SuggestUsers returns up to limit follow suggestions for the viewer,
// cached per user.
func (s *RecommendationService) SuggestUsers(ctx context.Context, viewerID int64, limit int) ([]ScoredUser, error) {
	if limit <= 0 {
		limit = 10
	}
	cfg := config.GetRecommendationConfig()
	key := cache.RecommendationKey(viewerID)

	var cached []ScoredUser
	if found, err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil && found {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	suggestions, err := s.compute(ctx, viewerID, cfg)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, suggestions, cfg.CacheTTL()); err != nil {
		slog.Warn("Failed to cache recommendations", "user_id", viewerID, "error", err)
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (s *RecommendationService) compute(ctx context.Context, viewerID int64, cfg *config.RecommendationConfig) ([]ScoredUser, error) {
	candidates, err := s.candidates.Candidates(ctx, viewerID, candidatePoolSize)
	if err != nil {
		return nil, err
	}

	// No graph to walk yet: fall back to the most active reviewers.
	if len(candidates) == 0 {
		return s.coldStart(ctx, viewerID, cfg)
	}

	scored := make([]ScoredUser, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredUser{
			User:  c.User.PublicProfile(),
			Score: scoreCandidate(c, cfg),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

func (s *RecommendationService) coldStart(ctx context.Context, viewerID int64, cfg *config.RecommendationConfig) ([]ScoredUser, error) {
	since := time.Now().AddDate(0, 0, -30)
	active, err := s.users.MostActiveReviewers(ctx, since, viewerID, cfg.ColdStartLimit)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredUser, 0, len(active))
	for _, u := range active {
		scored = append(scored, ScoredUser{User: u.PublicProfile()})
	}
	return scored, nil
}

// scoreCandidate combines the raw signals into a 0..1 score. Each signal
// saturates so one outlier cannot dominate the mix.
func scoreCandidate(c *repositories.FollowCandidate, cfg *config.RecommendationConfig) float64 {
	mutual := saturate(float64(c.MutualFollows), 5)
	genres := saturate(float64(c.SharedGenres), 5)

	// Mean rating distance on shared albums, inverted to agreement.
	// Ratings span 1..5 so the worst possible distance is 4.
	similarity := 0.0
	if c.SharedAlbums > 0 {
		meanDiff := c.RatingDiffSum / float64(c.SharedAlbums)
		similarity = 1 - math.Min(meanDiff/4, 1)
	}

	activity := saturate(float64(c.RecentReviews), 10)

	return cfg.MutualFollowWeight*mutual +
		cfg.GenreOverlapWeight*genres +
		cfg.RatingSimilarityWeight*similarity +
		cfg.ActivityWeight*activity
}

// saturate maps v onto 0..1, reaching 1 at the cap
func saturate(v, cap float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Min(v/cap, 1)
}

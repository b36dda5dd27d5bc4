package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// RecommendationConfig holds tunable weights for the who-to-follow scorer
type RecommendationConfig struct {
	// Weight of shared followers between the candidate and the user
	MutualFollowWeight float64 `toml:"mutual_follow_weight"`

	// Weight of overlap between the genres each user reviews
	GenreOverlapWeight float64 `toml:"genre_overlap_weight"`

	// Weight of rating agreement on albums both users reviewed
	RatingSimilarityWeight float64 `toml:"rating_similarity_weight"`

	// Weight of how recently the candidate has been active
	ActivityWeight float64 `toml:"activity_weight"`

	// How long a computed recommendation list stays cached per user
	CacheTTLMinutes int `toml:"cache_ttl_minutes"`

	// How many most-active reviewers to suggest when the user follows nobody
	ColdStartLimit int `toml:"cold_start_limit"`
}

// DefaultRecommendationConfig returns hard-coded safe defaults
func DefaultRecommendationConfig() *RecommendationConfig {
	return &RecommendationConfig{
		MutualFollowWeight:     0.35,
		GenreOverlapWeight:     0.25,
		RatingSimilarityWeight: 0.20,
		ActivityWeight:         0.20,
		CacheTTLMinutes:        15,
		ColdStartLimit:         10,
	}
}

// CacheTTL returns the recommendation cache lifetime
func (c *RecommendationConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

var (
	recommendCfg     *RecommendationConfig
	recommendCfgOnce sync.Once
	recommendCfgMu   sync.RWMutex
)

// GetRecommendationConfig loads the recommendation config from TOML if
// RECOMMENDATION_CONFIG_PATH is set. Falls back to defaults if the env var is
// unset or the file cannot be read/parsed.
func GetRecommendationConfig() *RecommendationConfig {
	recommendCfgOnce.Do(func() {
		cfg := DefaultRecommendationConfig()
		if path := os.Getenv("RECOMMENDATION_CONFIG_PATH"); path != "" {
			if fileCfg, err := loadRecommendationConfigFromPath(path); err == nil && fileCfg != nil {
				mergeRecommendationConfig(cfg, fileCfg)
			}
		} else {
			for _, p := range candidateRecommendationConfigPaths() {
				if fileCfg, err := loadRecommendationConfigFromPath(p); err == nil && fileCfg != nil {
					mergeRecommendationConfig(cfg, fileCfg)
					break
				}
			}
		}
		recommendCfgMu.Lock()
		recommendCfg = cfg
		recommendCfgMu.Unlock()
	})
	recommendCfgMu.RLock()
	cfg := recommendCfg
	recommendCfgMu.RUnlock()
	return cfg
}

func loadRecommendationConfigFromPath(path string) (*RecommendationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RecommendationConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeRecommendationConfig(base, override *RecommendationConfig) {
	if override == nil || base == nil {
		return
	}
	if override.MutualFollowWeight > 0 {
		base.MutualFollowWeight = override.MutualFollowWeight
	}
	if override.GenreOverlapWeight > 0 {
		base.GenreOverlapWeight = override.GenreOverlapWeight
	}
	if override.RatingSimilarityWeight > 0 {
		base.RatingSimilarityWeight = override.RatingSimilarityWeight
	}
	if override.ActivityWeight > 0 {
		base.ActivityWeight = override.ActivityWeight
	}
	if override.CacheTTLMinutes > 0 {
		base.CacheTTLMinutes = override.CacheTTLMinutes
	}
	if override.ColdStartLimit > 0 {
		base.ColdStartLimit = override.ColdStartLimit
	}
}

// candidateRecommendationConfigPaths returns common locations to auto-discover the config
func candidateRecommendationConfigPaths() []string {
	var paths []string
	paths = append(paths,
		"recommendation.toml",
		filepath.Join("config", "recommendation.toml"),
	)

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "soundscore", "recommendation.toml"))
	}

	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "soundscore", "recommendation.toml"))
	}

	paths = append(paths, filepath.Join(string(os.PathSeparator), "etc", "soundscore", "recommendation.toml"))
	return paths
}

// StartRecommendationConfigWatcher polls the config file for changes and reloads it.
// If no file exists, the watcher is a no-op.
func StartRecommendationConfigWatcher(ctx context.Context, interval time.Duration) {
	paths := []string{}
	if explicit := os.Getenv("RECOMMENDATION_CONFIG_PATH"); explicit != "" {
		paths = append(paths, explicit)
	} else {
		paths = append(paths, candidateRecommendationConfigPaths()...)
	}

	var watchPath string
	var lastModTime time.Time
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			watchPath = p
			lastModTime = fi.ModTime()
			break
		}
	}
	if watchPath == "" {
		slog.Info("recommendation config watcher: no config file found; using defaults")
		return
	}

	slog.Info("recommendation config watcher: watching file", "path", watchPath)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("recommendation config watcher: stopped")
				return
			case <-ticker.C:
				fi, err := os.Stat(watchPath)
				if err != nil || fi.IsDir() {
					continue
				}
				if fi.ModTime().After(lastModTime) {
					if fileCfg, err := loadRecommendationConfigFromPath(watchPath); err == nil && fileCfg != nil {
						newCfg := DefaultRecommendationConfig()
						mergeRecommendationConfig(newCfg, fileCfg)
						recommendCfgMu.Lock()
						recommendCfg = newCfg
						recommendCfgMu.Unlock()
						lastModTime = fi.ModTime()
						slog.Info("recommendation config reloaded", "path", watchPath, "mtime", lastModTime)
					}
				}
			}
		}
	}()
}

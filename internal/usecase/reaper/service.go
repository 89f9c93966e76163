package reaper

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// Service removes files left behind by ingests that crashed mid-pipeline.
// Canonical derivatives and named variants are never touched.
type Service struct {
	storage  storage.ObjectStorage
	suffixes []string
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(objectStorage storage.ObjectStorage, sizes valueobject.SizeProfiles, logger *zap.Logger) *Service {
	suffixes := make([]string, 0, len(sizes)+1)
	suffixes = append(suffixes, "-"+valueobject.ProcessedSuffix)
	for _, name := range sizes.Names() {
		suffixes = append(suffixes, "-"+name)
	}
	return &Service{
		storage:  objectStorage,
		suffixes: suffixes,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep deletes leftovers under prefix older than olderThan and returns how
// many were removed. Per-file failures are logged and skipped.
func (s *Service) Sweep(ctx context.Context, prefix string, olderThan time.Duration) (int, error) {
	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", prefix, err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, obj := range objects {
		if s.isManaged(obj.Key) || obj.LastModified.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.storage.Delete(ctx, obj.Key); err != nil {
			s.logger.Warn("removing orphan", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		s.logger.Debug("orphan removed", zap.String("key", obj.Key), zap.Time("last_modified", obj.LastModified))
		removed++
	}
	return removed, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration, prefix string, olderThan time.Duration) {
	s.logger.Info("orphan reaper started",
		zap.Duration("interval", interval),
		zap.Duration("max_age", olderThan),
		zap.String("prefix", prefix),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		removed, err := s.Sweep(ctx, prefix, olderThan)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Error("orphan sweep failed", zap.Error(err))
		case removed > 0:
			s.logger.Info("orphan sweep finished", zap.Int("removed", removed))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("orphan reaper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) isManaged(key string) bool {
	name := path.Base(key)
	ext := path.Ext(name)
	if _, err := valueobject.ParseFormat(strings.TrimPrefix(ext, ".")); err != nil {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return true
		}
	}
	return false
}

package asset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/entity"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
)

// Rollback outlives the ingest context so a timed out ingest is still cleaned up.
const rollbackTimeout = 30 * time.Second

type state string

const (
	stateReceived    state = "received"
	stateValidated   state = "validated"
	stateTransformed state = "transformed"
	stateStored      state = "stored"
	stateLinked      state = "linked"
	stateStoreFailed state = "store_failed"
	stateRolledBack  state = "rolled_back"
)

type Service struct {
	storage     storage.ObjectStorage
	validator   storage.ImageValidator
	transformer storage.ImageTransformer
	policy      valueobject.ImagePolicy
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(
	objectStorage storage.ObjectStorage,
	validator storage.ImageValidator,
	transformer storage.ImageTransformer,
	policy valueobject.ImagePolicy,
	timeout time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		storage:     objectStorage,
		validator:   validator,
		transformer: transformer,
		policy:      policy,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Ingest stores one canonical derivative and every configured size variant,
// or nothing at all.
func (s *Service) Ingest(ctx context.Context, input entity.SourceUpload) (*entity.IngestResult, error) {
	kindPolicy, err := s.policy.ForKind(input.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidKind, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	gen, err := entity.NewGeneration(input.Kind, input.OwnerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessingFailed, err)
	}

	log := s.logger.With(
		zap.String("kind", string(input.Kind)),
		zap.String("owner_id", input.OwnerID),
		zap.String("base_name", gen.BaseName),
	)
	transition(log, stateReceived, zap.Int("bytes", len(input.Data)), zap.String("filename", input.Filename))

	meta, err := s.validator.Validate(input.Data, input.ContentType)
	if err != nil {
		return nil, err
	}
	transition(log, stateValidated, zap.Int("width", meta.Width), zap.Int("height", meta.Height))

	canonical, err := s.transformer.Process(ctx, input.Data, kindPolicy)
	if err != nil {
		return nil, err
	}
	transition(log, stateTransformed, zap.Int("width", canonical.Metadata.Width), zap.Int("height", canonical.Metadata.Height))

	canonicalFormat := canonical.Metadata.Format
	canonicalKey := gen.CanonicalKey(canonicalFormat)
	written := []string{canonicalKey}

	obj, err := s.storage.Put(ctx, canonicalKey, canonical.Data, canonicalFormat.ContentType())
	if err != nil {
		s.fail(ctx, log, written, err)
		return nil, storageUnavailable(err)
	}

	result := &entity.IngestResult{
		URL:      obj.URL,
		Key:      canonicalKey,
		Variants: make(map[string]string, len(s.policy.Sizes)),
		Metadata: canonical.Metadata,
	}

	variants, err := s.transformer.DeriveVariants(ctx, canonical.Data, s.policy.Sizes)
	if err != nil {
		s.rollback(ctx, log, written)
		return nil, err
	}

	for _, size := range s.policy.Sizes {
		variant, ok := variants[size.Name]
		if !ok {
			s.rollback(ctx, log, written)
			return nil, fmt.Errorf("%w: variant %q was not produced", domain.ErrProcessingFailed, size.Name)
		}

		key := gen.VariantKey(size.Name, variant.Metadata.Format)
		written = append(written, key)

		obj, err := s.storage.Put(ctx, key, variant.Data, variant.Metadata.Format.ContentType())
		if err != nil {
			s.fail(ctx, log, written, err)
			return nil, storageUnavailable(err)
		}
		result.Variants[size.Name] = obj.URL
	}
	transition(log, stateStored, zap.Int("objects", len(written)))

	transition(log, stateLinked, zap.String("url", result.URL))
	return result, nil
}

// Remove deletes a canonical derivative and every variant of its generation.
// Absent objects and URLs this service never issued are not errors.
func (s *Service) Remove(ctx context.Context, url string) error {
	key, err := s.storage.KeyFromURL(url)
	if err != nil {
		s.logger.Warn("ignoring asset url", zap.String("url", url), zap.Error(err))
		return nil
	}

	gen, err := entity.ParseCanonicalKey(key)
	if err != nil {
		s.logger.Warn("ignoring asset url", zap.String("url", url), zap.Error(err))
		return nil
	}

	log := s.logger.With(zap.String("kind", string(gen.Kind)), zap.String("base_name", gen.BaseName))

	var errs error
	if err := s.storage.Delete(ctx, key); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("deleting %s: %w", key, err))
	}
	removed, err := s.storage.DeleteByPrefix(ctx, gen.VariantPrefix())
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("deleting %s*: %w", gen.VariantPrefix(), err))
	}

	if errs != nil {
		log.Error("removing asset", zap.Int("variants_removed", removed), zap.Error(errs))
		return storageUnavailable(errs)
	}

	log.Debug("asset removed", zap.Int("variants_removed", removed))
	return nil
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, written []string, cause error) {
	transition(log, stateStoreFailed, zap.String("key", written[len(written)-1]), zap.Error(cause))
	s.rollback(ctx, log, written)
}

// rollback deletes keys newest first. The failed key is included since a
// backend may have persisted part of it.
func (s *Service) rollback(ctx context.Context, log *zap.Logger, keys []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	var errs error
	for i := len(keys) - 1; i >= 0; i-- {
		if err := s.storage.Delete(ctx, keys[i]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deleting %s: %w", keys[i], err))
		}
	}

	if errs != nil {
		log.Error("rollback incomplete", zap.Strings("keys", keys), zap.Error(errs))
		return
	}
	transition(log, stateRolledBack, zap.Strings("keys", keys))
}

func transition(log *zap.Logger, st state, fields ...zap.Field) {
	log.Debug("asset state", append([]zap.Field{zap.String("state", string(st))}, fields...)...)
}

func storageUnavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}

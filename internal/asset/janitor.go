// Package asset removes uploaded project assets once they pass their retention window.
package asset

import (
	"context"
	"errors"
	"time"

	assetdomain "portal-service/internal/domain/asset"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Store interface {
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]*assetdomain.Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ObjectDeleter interface {
	DeleteObject(ctx context.Context, bucketName, objectKey string) error
}

type SweepResult struct {
	Expired    int
	Deleted    int
	Failed     int
	BytesFreed int64
}

type Janitor struct {
	store   Store
	objects ObjectDeleter
	log     zerolog.Logger
}

func NewJanitor(store Store, objects ObjectDeleter, log zerolog.Logger) *Janitor {
	return &Janitor{
		store:   store,
		objects: objects,
		log:     log.With().Str("component", "asset_janitor").Logger(),
	}
}

// Sweep deletes every asset that expired before cutoff. The object goes first
// so a failed row delete leaves a row pointing at nothing, never an orphaned object.
func (j *Janitor) Sweep(ctx context.Context, cutoff time.Time) (*SweepResult, error) {
	expired, err := j.store.ListExpiredBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Expired: len(expired)}
	for _, a := range expired {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := j.log.With().Str("asset_id", a.ID.String()).Str("object_key", a.ObjectKey).Logger()

		if err := j.objects.DeleteObject(ctx, a.Bucket, a.ObjectKey); err != nil {
			result.Failed++
			log.Error().Err(err).Msg("could not delete expired object")
			continue
		}

		if err := j.store.Delete(ctx, a.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			result.Failed++
			log.Error().Err(err).Msg("object deleted but asset row kept")
			continue
		}

		result.Deleted++
		result.BytesFreed += a.SizeBytes
	}

	if result.Expired > 0 {
		j.log.Info().
			Int("expired", result.Expired).
			Int("deleted", result.Deleted).
			Int("failed", result.Failed).
			Int64("bytes_freed", result.BytesFreed).
			Msg("asset sweep finished")
	}

	return result, nil
}

// Run sweeps every interval until ctx is done. retention is the grace period
// an asset is kept after its expiry.
func (j *Janitor) Run(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.log.Info().Dur("interval", interval).Dur("retention", retention).Msg("asset janitor started")

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := j.Sweep(ctx, now.UTC().Add(-retention)); err != nil && ctx.Err() == nil {
				j.log.Error().Err(err).Msg("asset sweep failed")
			}
		}
	}
}

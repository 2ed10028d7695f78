package postgres

import (
	"context"
	"time"

	"portal-service/internal/domain/asset"
	apperrors "portal-service/pkg/errors"

	"github.com/google/uuid"
)

type AssetRepository struct {
	db *DB
}

func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// ListExpiredBefore returns assets whose expires_at is earlier than cutoff.
// Assets without an expiry are kept forever.
func (r *AssetRepository) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]*asset.Asset, error) {
	query := `
		SELECT id, project_id, bucket, object_key, size_bytes, uploaded_at, expires_at
		FROM assets
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, errFailedListAssets(err)
	}
	defer rows.Close()

	var assets []*asset.Asset
	for rows.Next() {
		a := &asset.Asset{}
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Bucket, &a.ObjectKey, &a.SizeBytes, &a.UploadedAt, &a.ExpiresAt); err != nil {
			return nil, errFailedScanAsset(err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errFailedListAssets(err)
	}

	return assets, nil
}

func (r *AssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return errFailedDeleteAsset(err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errAssetNotFound)
	}

	return nil
}

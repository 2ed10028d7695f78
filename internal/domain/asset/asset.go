package asset

import (
	"time"

	"github.com/google/uuid"
)

type Asset struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	Bucket     string
	ObjectKey  string
	SizeBytes  int64
	UploadedAt time.Time
	ExpiresAt  *time.Time
}

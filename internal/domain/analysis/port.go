package analysis

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, r *Record) error
	// Latest returns up to limit records, newest first.
	Latest(ctx context.Context, limit int) ([]*Record, error)
	// ListByUser returns up to limit records owned by userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error)
}

// ArtifactStore keeps raw submissions next to the structured record.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

package memory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeRepository tracks Webex message ids that have already been processed.
// Webex redelivers webhook events on slow acknowledgement, so the webhook
// handler consults this before starting a pipeline run.
type DedupeRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedupeRepository(rdb *redis.Client, ttl time.Duration) *DedupeRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DedupeRepository{
		rdb: rdb,
		ttl: ttl,
	}
}

// MarkProcessed records the message id and reports whether it was seen before.
// SetNX keeps check-and-mark atomic across replicas.
func (r *DedupeRepository) MarkProcessed(ctx context.Context, messageId string) (seen bool, err error) {
	ok, err := r.rdb.SetNX(ctx, "webex:msg:"+messageId, 1, r.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

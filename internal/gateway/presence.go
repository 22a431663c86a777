package gateway

import (
	"context"
	"time"

	"github.com/victorivanov/supportline/internal/redis"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceService mirrors connection status into Redis so other processes
// and the admin API can query it.
type PresenceService struct {
	redis *redis.Client
}

// NewPresenceService creates a PresenceService.
func NewPresenceService(redisClient *redis.Client) *PresenceService {
	return &PresenceService{redis: redisClient}
}

// GetStatus returns the mirrored status for a key, or offline when unknown.
func (ps *PresenceService) GetStatus(ctx context.Context, key string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status, err := ps.redis.GetPresence(ctx, key)
	if err != nil || status == "" {
		return StatusOffline
	}
	return status
}

// SetOnline marks a key as online.
func (ps *PresenceService) SetOnline(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ps.redis.SetPresence(ctx, key, StatusOnline)
}

// SetOffline clears a key's status.
func (ps *PresenceService) SetOffline(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ps.redis.DeletePresence(ctx, key)
}

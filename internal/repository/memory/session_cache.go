package memory

import (
	"time"

	"github.com/legex/CAI-Webex/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionCache keeps hot session rows in memory so the webhook path does not
// pay a DB lookup per message. The database stays the source of truth; entries
// are overwritten on every mutation and expire on their own.
type SessionCache struct {
	cache *cache.Cache
}

func NewSessionCache() *SessionCache {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionCache{
		cache: c,
	}
}

func key(roomId, personEmail string) string {
	return roomId + "|" + personEmail
}

func (r *SessionCache) Save(session *entity.ChatSession) {
	r.cache.Set(key(session.RoomId, session.PersonEmail), session, cache.DefaultExpiration)
}

func (r *SessionCache) Get(roomId, personEmail string) (*entity.ChatSession, bool) {
	if x, found := r.cache.Get(key(roomId, personEmail)); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

func (r *SessionCache) Delete(roomId, personEmail string) {
	r.cache.Delete(key(roomId, personEmail))
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
)

const recordVersion = 1

// cachedRecord is the JSON document kept under the cache key.
type cachedRecord struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Session *domain.Session `json:"session"`
}

var errCorruptRecord = errors.New("cached session record is corrupt")

func encodeRecord(session *domain.Session, savedAt time.Time) (string, error) {
	payload, err := json.Marshal(cachedRecord{
		Version: recordVersion,
		SavedAt: savedAt.UTC(),
		Session: session,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeRecord(raw string) (*domain.Session, error) {
	var rec cachedRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorruptRecord, rec.Version)
	}
	if rec.Session == nil || rec.Session.User == nil || rec.Session.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing session fields", errCorruptRecord)
	}
	return rec.Session, nil
}

// loadCachedSession returns the cached session if it is present, readable and
// unexpired. Unusable records are removed; storage failures are only logged.
func (m *Manager) loadCachedSession(ctx context.Context) *domain.Session {
	readCtx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	raw, err := m.store.Get(readCtx, m.cfg.CacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			m.logger.Warn("reading cached session failed", zap.Error(err))
		}
		return nil
	}

	session, err := decodeRecord(raw)
	if err != nil {
		m.logger.Warn("discarding unreadable cached session", zap.Error(err))
		m.evict(readCtx)
		return nil
	}
	if session.IsExpired(m.now()) {
		m.logger.Debug("discarding expired cached session", zap.Time("expires_at", session.ExpiresAt))
		m.evict(readCtx)
		return nil
	}
	return session
}

func (m *Manager) persist(ctx context.Context, session *domain.Session) {
	payload, err := encodeRecord(session, m.now())
	if err != nil {
		m.logger.Error("encoding session record failed", zap.Error(err))
		return
	}
	if err := m.store.Set(ctx, m.cfg.CacheKey, payload); err != nil {
		m.logger.Warn("persisting session record failed", zap.Error(err))
	}
}

func (m *Manager) evict(ctx context.Context) {
	if err := m.store.Remove(ctx, m.cfg.CacheKey); err != nil {
		m.logger.Warn("removing session record failed", zap.Error(err))
	}
}

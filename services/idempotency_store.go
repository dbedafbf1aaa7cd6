// services/idempotency_store.go
package services

import (
	"context"
	"errors"
	"time"

	"crypto-gift-system/models"

	"gorm.io/gorm"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

const idempotencyStatusCompleted = "completed"

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// IdempotencyStore remembers the outcome of keyed requests.
// Begin claims a key, Complete caches a response for it, Release drops an unfinished claim.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
	Release(ctx context.Context, scope, key, fingerprint string) error
}

// DBIdempotencyStore keeps idempotency records in the idempotency_records table.
type DBIdempotencyStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var rec models.IdempotencyRecord
	err := db.Where("scope = ? AND idempotency_key = ?", scope, key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.IdempotencyRecord{
			Scope:           scope,
			IdempotencyKey:  key,
			FingerprintHash: fingerprint,
			Status:          string(IdempotencyStateNew),
			ExpiresAt:       now.Add(ttl),
		}
		if errCreate := db.Create(&rec).Error; errCreate != nil {
			// Lost the insert race to a concurrent request with the same key.
			if isDuplicateKey(errCreate) {
				return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
			}
			return IdempotencyBeginResult{}, errCreate
		}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if err != nil {
		return IdempotencyBeginResult{}, err
	}

	if !rec.ExpiresAt.After(now) {
		// Expired but not yet swept: whoever resets it first owns the key.
		res := db.Model(&models.IdempotencyRecord{}).
			Where("id = ? AND expires_at <= ?", rec.ID, now).
			Updates(map[string]any{
				"fingerprint_hash": fingerprint,
				"status":           string(IdempotencyStateNew),
				"response_status":  0,
				"response_body":    nil,
				"content_type":     "",
				"expires_at":       now.Add(ttl),
			})
		if res.Error != nil {
			return IdempotencyBeginResult{}, res.Error
		}
		if res.RowsAffected == 1 {
			return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
		}
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}

	if rec.FingerprintHash != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if rec.Status == idempotencyStatusCompleted {
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{
				StatusCode:  rec.ResponseStatus,
				ContentType: rec.ContentType,
				Body:        rec.ResponseBody,
			},
		}, nil
	}
	return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	return s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ?", scope, key, fingerprint).
		Updates(map[string]any{
			"status":          idempotencyStatusCompleted,
			"response_status": response.StatusCode,
			"response_body":   response.Body,
			"content_type":    response.ContentType,
			"expires_at":      s.now().Add(ttl),
		}).Error
}

func (s *DBIdempotencyStore) Release(ctx context.Context, scope, key, fingerprint string) error {
	return s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ? AND status <> ?",
			scope, key, fingerprint, idempotencyStatusCompleted).
		Delete(&models.IdempotencyRecord{}).Error
}

// CleanupExpired deletes at most batchSize records that expired before now.
func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var ids []uint
	if err := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("expires_at <= ?", now).
		Order("id ASC").
		Limit(batchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

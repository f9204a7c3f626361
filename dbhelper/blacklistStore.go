package dbhelper

import (
	"time"

	"github.com/recetario/apiv1/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlacklistStore is the revocation ledger: the presence of a live row is
// the sole authority that makes an otherwise valid token unusable.
type BlacklistStore struct {
	db *gorm.DB
}

func NewBlacklistStore(db *gorm.DB) *BlacklistStore {
	return &BlacklistStore{db: db}
}

// Add upserts a revocation record keyed by the raw token string. Revoking
// the same token twice refreshes expires_at/created_at instead of failing,
// so a repeated logout stays safe.
func (s *BlacklistStore) Add(token string, userID uint, expiresAt time.Time) error {
	entry := models.BlacklistedToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at", "created_at"}),
	}).Create(&entry)
	return result.Error
}

// IsBlacklisted prunes expired rows, then checks for a live record. It is a
// read with maintenance, not a pure query: every call may shrink the table.
func (s *BlacklistStore) IsBlacklisted(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if _, err := s.PruneExpired(); err != nil {
		return false, err
	}
	var count int64
	result := s.db.Model(&models.BlacklistedToken{}).
		Where("token = ? AND expires_at > ?", token, time.Now().UTC()).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// PruneExpired deletes every row whose expiry has passed. The delete is by
// predicate, so concurrent pruners racing over the same rows never error.
func (s *BlacklistStore) PruneExpired() (int64, error) {
	result := s.db.
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&models.BlacklistedToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

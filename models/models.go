package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// BackupCodes is the set of single-use 2FA recovery codes, stored as a JSON
// array in a text column.
type BackupCodes []string

func (c BackupCodes) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *BackupCodes) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return errors.New("backup codes: unsupported column type")
	}
}

type User struct {
	gorm.Model
	Email           string      `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash    string      `gorm:"size:255;not null"`
	DisplayName     string      `gorm:"size:50;not null"`
	TOTPEnabled     bool        `gorm:"column:totp_enabled;default:false"`
	TOTPSecret      string      `gorm:"column:totp_secret;size:64"`
	TOTPBackupCodes BackupCodes `gorm:"column:totp_backup_codes;type:text"`
	TOTPMethod      string      `gorm:"column:totp_method;size:20"`
}

func (User) TableName() string {
	return "usuarios"
}

// BlacklistedToken records an explicitly revoked bearer token. The token
// string itself is the key; rows past ExpiresAt are dead and pruned lazily.
type BlacklistedToken struct {
	Token     string    `gorm:"primaryKey;size:512"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (BlacklistedToken) TableName() string {
	return "tokens_blacklist"
}

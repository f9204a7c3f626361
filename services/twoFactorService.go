package services

import (
	"crypto/rand"
	"math/big"

	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/models"
	"github.com/recetario/apiv1/utils"
)

const backupCodeCount = 8

// TwoFactorService drives TOTP enrollment: a staged secret first, enabled
// only once the user proves possession of the authenticator.
type TwoFactorService struct {
	users  *dbhelper.UserStore
	engine *utils.TOTPEngine
	qr     QRRenderer
}

func NewTwoFactorService(users *dbhelper.UserStore, engine *utils.TOTPEngine, qr QRRenderer) *TwoFactorService {
	return &TwoFactorService{users: users, engine: engine, qr: qr}
}

// SetupResult carries everything the enrollment modal needs. The secret is
// staged on the user row but totp_enabled stays false until Enable.
type SetupResult struct {
	Secret     string
	QRCodeURL  string
	OtpauthURL string
}

func (s *TwoFactorService) BeginSetup(userID uint) (*SetupResult, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	secret, err := s.engine.GenerateSecret()
	if err != nil {
		return nil, err
	}
	otpauthURL := s.engine.ProvisioningURI(secret, user.Email)
	qrCodeURL, err := s.qr.Render(otpauthURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.UpdateUser(userID, map[string]interface{}{
		"totp_secret": secret,
	}); err != nil {
		return nil, err
	}
	return &SetupResult{Secret: secret, QRCodeURL: qrCodeURL, OtpauthURL: otpauthURL}, nil
}

// VerifyCode checks a submitted code against the stored secret, or against
// secretOverride when the caller already holds the user row.
func (s *TwoFactorService) VerifyCode(userID uint, code, secretOverride string) (bool, error) {
	secret := secretOverride
	if secret == "" {
		user, err := s.users.FindByID(userID)
		if err != nil {
			return false, err
		}
		if user == nil {
			return false, ErrUserNotFound
		}
		secret = user.TOTPSecret
	}
	if secret == "" {
		return false, nil
	}
	return s.engine.VerifyCode(secret, code), nil
}

// Enable flips totp_enabled after one valid code and returns the freshly
// generated backup codes. This is the only moment they exist in plaintext
// outside the authenticator's owner.
func (s *TwoFactorService) Enable(userID uint, code string) ([]string, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.TOTPSecret == "" {
		return nil, ErrNoPendingSetup
	}
	valid, err := s.VerifyCode(userID, code, user.TOTPSecret)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalid2FACode
	}
	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.UpdateUser(userID, map[string]interface{}{
		"totp_enabled":      true,
		"totp_method":       "totp",
		"totp_backup_codes": models.BackupCodes(codes),
	}); err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable clears secret, backup codes and flag. Idempotent: disabling when
// never enabled is a no-op success.
func (s *TwoFactorService) Disable(userID uint) error {
	_, err := s.users.UpdateUser(userID, map[string]interface{}{
		"totp_enabled":      false,
		"totp_secret":       "",
		"totp_method":       "",
		"totp_backup_codes": nil,
	})
	return err
}

// ConsumeBackupCode removes the matched code from the set, single use. No
// match, or no codes at all, fails closed with the set unchanged.
func (s *TwoFactorService) ConsumeBackupCode(userID uint, code string) (bool, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil || len(user.TOTPBackupCodes) == 0 {
		return false, nil
	}
	remaining := make(models.BackupCodes, 0, len(user.TOTPBackupCodes))
	found := false
	for _, c := range user.TOTPBackupCodes {
		if !found && c == code {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return false, nil
	}
	if _, err := s.users.UpdateUser(userID, map[string]interface{}{
		"totp_backup_codes": remaining,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// RegenerateBackupCodes replaces the whole set while 2FA is enabled.
func (s *TwoFactorService) RegenerateBackupCodes(userID uint) ([]string, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.TOTPEnabled {
		return nil, ErrTwoFactorNotEnabled
	}
	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.UpdateUser(userID, map[string]interface{}{
		"totp_backup_codes": models.BackupCodes(codes),
	}); err != nil {
		return nil, err
	}
	return codes, nil
}

// generateBackupCodes draws 8 eight-digit codes from crypto/rand.
func generateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	span := big.NewInt(90000000)
	for len(codes) < backupCodeCount {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return nil, err
		}
		codes = append(codes, big.NewInt(0).Add(n, big.NewInt(10000000)).String())
	}
	return codes, nil
}

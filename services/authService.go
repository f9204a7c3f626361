package services

import (
	"errors"
	"strings"
	"time"

	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/models"
	"github.com/recetario/apiv1/utils"
)

// AuthService coordinates the credential store, token issuer, TOTP engine
// and revocation ledger across registration, login, second-factor step-up
// and logout.
type AuthService struct {
	users     *dbhelper.UserStore
	blacklist *dbhelper.BlacklistStore
	tokens    *utils.TokenIssuer
	twoFactor *TwoFactorService
}

func NewAuthService(users *dbhelper.UserStore, blacklist *dbhelper.BlacklistStore, tokens *utils.TokenIssuer, twoFactor *TwoFactorService) *AuthService {
	return &AuthService{users: users, blacklist: blacklist, tokens: tokens, twoFactor: twoFactor}
}

// LoginResult is either a finished session (Token set) or a pending
// second factor (RequiresTwoFactor with the step-up token, no session
// token issued yet).
type LoginResult struct {
	Token             string
	User              *models.User
	RequiresTwoFactor bool
	StepUpToken       string
	Method            string
}

// LogoutResult reports what revocation actually did.
type LogoutResult struct {
	AlreadyExpired bool
	Verified       bool
	ExpiresAt      time.Time
}

// NormalizeEmail lower-cases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user after hashing the password; duplicate emails
// surface as ErrEmailAlreadyExists.
func (s *AuthService) Register(email, password, displayName string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.CreateUser(NormalizeEmail(email), hash, strings.TrimSpace(displayName))
	if errors.Is(err, dbhelper.ErrDuplicateEmail) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the password and either finishes (session token) or asks
// for the second factor (step-up token, 5 minutes).
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	user, err := s.users.FindByEmail(NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !utils.ComparePasswords(user.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}
	if user.TOTPEnabled {
		stepUp, err := s.tokens.IssueStepUpToken(user.ID, user.Email)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			RequiresTwoFactor: true,
			StepUpToken:       stepUp,
			Method:            user.TOTPMethod,
			User:              user,
		}, nil
	}
	token, err := s.tokens.IssueSessionToken(user.ID, user.Email, user.DisplayName)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// VerifyTwoFactor completes a pending login with a TOTP code.
func (s *AuthService) VerifyTwoFactor(stepUpToken, code string) (*LoginResult, error) {
	user, err := s.resolveStepUp(stepUpToken)
	if err != nil {
		return nil, err
	}
	valid, err := s.twoFactor.VerifyCode(user.ID, code, user.TOTPSecret)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalid2FACode
	}
	return s.finishLogin(user)
}

// VerifyBackupCode completes a pending login by consuming one recovery
// code. A wrong code and an already-used code fail the same way.
func (s *AuthService) VerifyBackupCode(stepUpToken, backupCode string) (*LoginResult, error) {
	user, err := s.resolveStepUp(stepUpToken)
	if err != nil {
		return nil, err
	}
	consumed, err := s.twoFactor.ConsumeBackupCode(user.ID, backupCode)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidBackupCode
	}
	return s.finishLogin(user)
}

func (s *AuthService) resolveStepUp(stepUpToken string) (*models.User, error) {
	claims, err := s.tokens.Verify(stepUpToken)
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, ErrTempTokenExpired
	}
	if err != nil || claims.Step != utils.STEP_2FA_VERIFICATION {
		return nil, ErrInvalidTempToken
	}
	user, err := s.users.FindByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) finishLogin(user *models.User) (*LoginResult, error) {
	token, err := s.tokens.IssueSessionToken(user.ID, user.Email, user.DisplayName)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes the exact token presented. The token is decoded, not
// verified: revocation must work even when the signature can no longer be
// checked. A token that already expired is a success without touching the
// ledger.
func (s *AuthService) Logout(token string, userID uint) (*LogoutResult, error) {
	if token == "" {
		return nil, ErrInvalidLogoutToken
	}
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, ErrLogoutTokenBroken
	}
	if claims.ExpiresAt.IsZero() {
		return nil, ErrTokenMissingExpiry
	}
	if claims.UserID != userID {
		return nil, ErrTokenUserMismatch
	}
	if !claims.ExpiresAt.After(time.Now()) {
		return &LogoutResult{AlreadyExpired: true, ExpiresAt: claims.ExpiresAt}, nil
	}
	if err := s.blacklist.Add(token, userID, claims.ExpiresAt); err != nil {
		return nil, err
	}
	// Observable success signal, not required for correctness.
	verified, err := s.blacklist.IsBlacklisted(token)
	if err != nil {
		return nil, err
	}
	return &LogoutResult{Verified: verified, ExpiresAt: claims.ExpiresAt}, nil
}

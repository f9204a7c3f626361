package services

import (
	"testing"
	"time"

	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/models"
	"github.com/recetario/apiv1/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	users     *dbhelper.UserStore
	blacklist *dbhelper.BlacklistStore
	tokens    *utils.TokenIssuer
	engine    *utils.TOTPEngine
	twoFactor *TwoFactorService
	auth      *AuthService
}

var testSecret = []byte("service-test-signing-secret")

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.BlacklistedToken{}))

	users := dbhelper.NewUserStore(db)
	blacklist := dbhelper.NewBlacklistStore(db)
	tokens := utils.NewTokenIssuer(testSecret)
	engine := utils.NewTOTPEngine("Recetario")
	twoFactor := NewTwoFactorService(users, engine, NewChartURLRenderer())
	auth := NewAuthService(users, blacklist, tokens, twoFactor)
	return &testEnv{
		db:        db,
		users:     users,
		blacklist: blacklist,
		tokens:    tokens,
		engine:    engine,
		twoFactor: twoFactor,
		auth:      auth,
	}
}

func (e *testEnv) registerUser(t *testing.T, email, password, nombre string) *models.User {
	t.Helper()
	user, err := e.auth.Register(email, password, nombre)
	require.NoError(t, err)
	return user
}

// enableTwoFactor runs the whole enrollment for a user and returns the
// staged secret and the plaintext backup codes.
func (e *testEnv) enableTwoFactor(t *testing.T, userID uint) (string, []string) {
	t.Helper()
	setup, err := e.twoFactor.BeginSetup(userID)
	require.NoError(t, err)
	codes, err := e.twoFactor.Enable(userID, e.currentCode(setup.Secret))
	require.NoError(t, err)
	return setup.Secret, codes
}

func (e *testEnv) currentCode(secret string) string {
	return e.engine.CodeAt(secret, time.Now())
}

// wrongCode picks a six-digit code outside the acceptance window.
func (e *testEnv) wrongCode(secret string) string {
	now := time.Now()
	accepted := map[string]bool{
		e.engine.CodeAt(secret, now.Add(-30*time.Second)): true,
		e.engine.CodeAt(secret, now):                      true,
		e.engine.CodeAt(secret, now.Add(30*time.Second)):  true,
	}
	for _, candidate := range []string{"000000", "111111", "222222", "333333"} {
		if !accepted[candidate] {
			return candidate
		}
	}
	return "444444"
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginSetupStagesSecret(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	setup, err := env.twoFactor.BeginSetup(user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, setup.QRCodeURL, "api.qrserver.com")

	reloaded, err := env.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, setup.Secret, reloaded.TOTPSecret)
	// Staged, not enabled.
	assert.False(t, reloaded.TOTPEnabled)
}

func TestEnableWithoutSetup(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	_, err := env.twoFactor.Enable(user.ID, "123456")
	assert.ErrorIs(t, err, ErrNoPendingSetup)
}

func TestEnableWithWrongCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	setup, err := env.twoFactor.BeginSetup(user.ID)
	require.NoError(t, err)

	_, err = env.twoFactor.Enable(user.ID, env.wrongCode(setup.Secret))
	assert.ErrorIs(t, err, ErrInvalid2FACode)

	reloaded, err := env.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.TOTPEnabled)
}

func TestEnableGeneratesBackupCodes(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	setup, err := env.twoFactor.BeginSetup(user.ID)
	require.NoError(t, err)
	codes, err := env.twoFactor.Enable(user.ID, env.currentCode(setup.Secret))
	require.NoError(t, err)

	require.Len(t, codes, 8)
	for _, code := range codes {
		assert.Len(t, code, 8)
		assert.Regexp(t, `^\d{8}$`, code)
	}

	reloaded, err := env.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TOTPEnabled)
	assert.Equal(t, "totp", reloaded.TOTPMethod)
	assert.Len(t, reloaded.TOTPBackupCodes, 8)
}

func TestConsumeBackupCodeSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")
	_, codes := env.enableTwoFactor(t, user.ID)

	ok, err := env.twoFactor.ConsumeBackupCode(user.ID, codes[0])
	require.NoError(t, err)
	assert.True(t, ok)

	// Same code a second time fails, set unchanged.
	ok, err = env.twoFactor.ConsumeBackupCode(user.ID, codes[0])
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := env.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.TOTPBackupCodes, 7)
}

func TestConsumeAllBackupCodes(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")
	_, codes := env.enableTwoFactor(t, user.ID)

	for _, code := range codes {
		ok, err := env.twoFactor.ConsumeBackupCode(user.ID, code)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// The 9th attempt fails regardless of value.
	ok, err := env.twoFactor.ConsumeBackupCode(user.ID, codes[0])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeBackupCodeWithoutAny(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	ok, err := env.twoFactor.ConsumeBackupCode(user.ID, "12345678")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisableIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	// Disabling without ever enabling is a no-op success.
	require.NoError(t, env.twoFactor.Disable(user.ID))

	env.enableTwoFactor(t, user.ID)
	require.NoError(t, env.twoFactor.Disable(user.ID))
	require.NoError(t, env.twoFactor.Disable(user.ID))

	reloaded, err := env.users.FindByID(user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.TOTPEnabled)
	assert.Empty(t, reloaded.TOTPSecret)
	assert.Empty(t, reloaded.TOTPBackupCodes)
}

func TestRegenerateBackupCodes(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	_, err := env.twoFactor.RegenerateBackupCodes(user.ID)
	assert.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	_, old := env.enableTwoFactor(t, user.ID)
	fresh, err := env.twoFactor.RegenerateBackupCodes(user.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 8)
	assert.NotEqual(t, old, fresh)

	// Old codes no longer work.
	ok, err := env.twoFactor.ConsumeBackupCode(user.ID, old[0])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCodeWithoutSecret(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, "ana@example.com", "Passw0rd", "Ana")

	ok, err := env.twoFactor.VerifyCode(user.ID, "123456", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

package services

// AuthError is a tagged failure: a stable machine-readable código for
// client branching, the HTTP status the API surfaces it with, and a human
// message. Callers branch on the sentinel values below, never on message
// content.
type AuthError struct {
	Code    string
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	ErrEmailAlreadyExists = &AuthError{Code: "EMAIL_ALREADY_EXISTS", Status: 400, Message: "El correo ya está registrado"}
	ErrMissingCredentials = &AuthError{Code: "MISSING_CREDENTIALS", Status: 400, Message: "Email y contraseña son requeridos"}
	ErrUserNotFound       = &AuthError{Code: "USER_NOT_FOUND", Status: 401, Message: "Usuario no encontrado"}
	ErrInvalidPassword    = &AuthError{Code: "INVALID_PASSWORD", Status: 401, Message: "Contraseña incorrecta"}

	ErrInvalid2FACode    = &AuthError{Code: "INVALID_2FA_CODE", Status: 401, Message: "Código 2FA inválido"}
	ErrTempTokenExpired  = &AuthError{Code: "TEMP_TOKEN_EXPIRED", Status: 401, Message: "Token temporal expirado"}
	ErrInvalidTempToken  = &AuthError{Code: "INVALID_TEMP_TOKEN", Status: 400, Message: "Token temporal inválido"}
	ErrInvalidBackupCode = &AuthError{Code: "INVALID_BACKUP_CODE", Status: 401, Message: "Código de respaldo inválido o ya usado"}

	ErrNoPendingSetup      = &AuthError{Code: "NO_PENDING_2FA_SETUP", Status: 400, Message: "No hay configuración de 2FA pendiente"}
	ErrTwoFactorNotEnabled = &AuthError{Code: "2FA_NOT_ENABLED", Status: 400, Message: "2FA no está habilitado"}

	ErrInvalidLogoutToken = &AuthError{Code: "INVALID_TOKEN_LOGOUT", Status: 400, Message: "Token inválido o no proporcionado"}
	ErrInvalidUserID      = &AuthError{Code: "INVALID_USER_ID", Status: 400, Message: "ID de usuario inválido"}
	ErrLogoutTokenBroken  = &AuthError{Code: "TOKEN_MALFORMED", Status: 400, Message: "Token malformado - no se puede decodificar"}
	ErrTokenMissingExpiry = &AuthError{Code: "TOKEN_MISSING_EXPIRY", Status: 400, Message: "Token sin información de expiración"}
	ErrTokenUserMismatch  = &AuthError{Code: "TOKEN_USER_MISMATCH", Status: 403, Message: "El token no pertenece al usuario especificado"}
)

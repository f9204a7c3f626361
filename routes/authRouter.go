package routes

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/middlewares"
	"github.com/recetario/apiv1/models"
	"github.com/recetario/apiv1/services"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"contraseña" validate:"required,min=6,contrasena_fuerte"`
	Nombre   string `json:"nombre" validate:"required,min=2,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"contraseña"`
}

type Verify2FARequest struct {
	Token2FA      string `json:"token_2fa" validate:"required,len=6,numeric"`
	TokenTemporal string `json:"token_temporal" validate:"required"`
}

type BackupCodeRequest struct {
	BackupCode    string `json:"backup_code" validate:"required"`
	TokenTemporal string `json:"token_temporal" validate:"required"`
}

type Enable2FARequest struct {
	Token2FA string `json:"token_2fa"`
}

type RequestBody interface {
	RegisterRequest | LoginRequest | Verify2FARequest | BackupCodeRequest | Enable2FARequest
}

// UserPayload is the user object every auth response embeds.
type UserPayload struct {
	ID            uint      `json:"id"`
	Email         string    `json:"email"`
	Nombre        string    `json:"nombre"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

func userPayload(u *models.User) UserPayload {
	return UserPayload{
		ID:            u.ID,
		Email:         u.Email,
		Nombre:        u.DisplayName,
		FechaCreacion: u.CreatedAt,
	}
}

type usuariosHandler struct {
	auth      *services.AuthService
	twoFactor *services.TwoFactorService
	users     *dbhelper.UserStore
}

func UsuariosRouter(s *mux.Router, deps Deps, lmt *limiter.Limiter) {
	h := &usuariosHandler{auth: deps.Auth, twoFactor: deps.TwoFactor, users: deps.Users}
	gate := deps.Gatekeeper

	// Public, rate limited.
	s.Handle("", tollbooth.LimitFuncHandler(lmt, h.Crear)).Methods("POST")
	s.Handle("/login", tollbooth.LimitFuncHandler(lmt, h.Login)).Methods("POST")
	s.Handle("/login/verify-2fa", tollbooth.LimitFuncHandler(lmt, h.Verify2FA)).Methods("POST")
	s.Handle("/login/backup-code", tollbooth.LimitFuncHandler(lmt, h.BackupCode)).Methods("POST")

	// Protected.
	s.HandleFunc("", gate.RequireAuth(h.Listar)).Methods("GET")
	s.HandleFunc("/me", gate.RequireAuth(h.Perfil)).Methods("GET")
	s.HandleFunc("/logout", gate.RequireAuth(h.Logout)).Methods("POST")
	s.HandleFunc("/2fa/setup", gate.RequireAuth(h.Setup2FA)).Methods("POST")
	s.HandleFunc("/2fa/enable", gate.RequireAuth(h.Enable2FA)).Methods("POST")
	s.HandleFunc("/2fa/disable", gate.RequireAuth(h.Disable2FA)).Methods("POST")
	s.HandleFunc("/2fa/backup-codes/regenerate", gate.RequireAuth(h.RegenerateBackupCodes)).Methods("POST")
}

func DecodeValidBody[B RequestBody](r *http.Request) (B, error) {
	var requestBody B
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		return requestBody, err
	}
	if err := validate.Struct(requestBody); err != nil {
		return requestBody, err
	}
	return requestBody, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{"error": message, "codigo": code})
}

func writeValidationError(w http.ResponseWriter, err error) {
	detalles := []string{err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		detalles = detalles[:0]
		for _, fe := range verrs {
			detalles = append(detalles, fe.Error())
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":    "Datos inválidos",
		"codigo":   "VALIDATION_ERROR",
		"detalles": detalles,
	})
}

// writeAuthServiceError maps a tagged AuthError to its own status/código;
// anything else is logged and hidden behind a generic 500.
func writeAuthServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	var ae *services.AuthError
	if errors.As(err, &ae) {
		writeError(w, ae.Status, ae.Message, ae.Code)
		return
	}
	log.Println(err)
	writeError(w, http.StatusInternalServerError, "Error interno del servidor", fallbackCode)
}

func (h *usuariosHandler) Crear(w http.ResponseWriter, r *http.Request) {
	body, err := DecodeValidBody[RegisterRequest](r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	user, err := h.auth.Register(body.Email, body.Password, body.Nombre)
	if err != nil {
		writeAuthServiceError(w, err, "REGISTRATION_SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"mensaje": "Usuario registrado exitosamente",
		"usuario": userPayload(user),
	})
}

func (h *usuariosHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Email y contraseña son requeridos", "MISSING_CREDENTIALS")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Email y contraseña son requeridos", "MISSING_CREDENTIALS")
		return
	}
	result, err := h.auth.Login(body.Email, body.Password)
	if err != nil {
		writeAuthServiceError(w, err, "LOGIN_SERVER_ERROR")
		return
	}
	if result.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"requiere_2fa":   true,
			"token_temporal": result.StepUpToken,
			"metodo_2fa":     result.Method,
			"mensaje":        "Se requiere verificación de dos factores",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   result.Token,
		"usuario": userPayload(result.User),
		"mensaje": "Login exitoso",
	})
}

func (h *usuariosHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var body Verify2FARequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token2FA == "" || body.TokenTemporal == "" {
		writeError(w, http.StatusBadRequest, "Token 2FA y token temporal son requeridos", "MISSING_2FA_DATA")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeValidationError(w, err)
		return
	}
	result, err := h.auth.VerifyTwoFactor(body.TokenTemporal, body.Token2FA)
	if err != nil {
		writeAuthServiceError(w, err, "2FA_SERVER_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   result.Token,
		"usuario": userPayload(result.User),
		"mensaje": "Verificación 2FA exitosa",
	})
}

func (h *usuariosHandler) BackupCode(w http.ResponseWriter, r *http.Request) {
	var body BackupCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BackupCode == "" || body.TokenTemporal == "" {
		writeError(w, http.StatusBadRequest, "Código de respaldo y token temporal son requeridos", "MISSING_BACKUP_DATA")
		return
	}
	result, err := h.auth.VerifyBackupCode(body.TokenTemporal, body.BackupCode)
	if err != nil {
		writeAuthServiceError(w, err, "BACKUP_CODE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":   result.Token,
		"usuario": userPayload(result.User),
		"mensaje": "Acceso con código de respaldo exitoso",
	})
}

func (h *usuariosHandler) Perfil(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
		return
	}
	user, err := h.users.FindByID(authUser.ID)
	if err != nil {
		writeAuthServiceError(w, err, "PROFILE_SERVER_ERROR")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "Usuario no encontrado", "USER_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                 user.ID,
		"email":              user.Email,
		"nombre":             user.DisplayName,
		"fecha_creacion":     user.CreatedAt,
		"two_factor_enabled": user.TOTPEnabled,
		"two_factor_method":  user.TOTPMethod,
	})
}

func (h *usuariosHandler) Listar(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers()
	if err != nil {
		writeAuthServiceError(w, err, "PROFILE_SERVER_ERROR")
		return
	}
	payload := make([]UserPayload, 0, len(users))
	for i := range users {
		payload = append(payload, userPayload(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"usuarios": payload})
}

func (h *usuariosHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "Token o usuario no encontrado", "TOKEN_OR_USER_NOT_FOUND")
		return
	}
	result, err := h.auth.Logout(authUser.Token, authUser.ID)
	if err != nil {
		writeAuthServiceError(w, err, "LOGOUT_SERVER_ERROR")
		return
	}
	resp := map[string]interface{}{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.AlreadyExpired {
		resp["mensaje"] = "Token ya expirado, sesión cerrada"
		resp["ya_expirado"] = true
	} else {
		resp["mensaje"] = "Sesión cerrada exitosamente"
		resp["verificado"] = result.Verified
		resp["token_info"] = map[string]interface{}{
			"expira_en":            result.ExpiresAt.UTC().Format(time.RFC3339),
			"agregado_a_blacklist": true,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *usuariosHandler) Setup2FA(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
		return
	}
	setup, err := h.twoFactor.BeginSetup(authUser.ID)
	if err != nil {
		writeAuthServiceError(w, err, "2FA_SETUP_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"secret":      setup.Secret,
		"qr_code_url": setup.QRCodeURL,
		"otpauth_url": setup.OtpauthURL,
		"mensaje":     "Configura el 2FA con tu aplicación autenticadora",
	})
}

func (h *usuariosHandler) Enable2FA(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
		return
	}
	var body Enable2FARequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token2FA == "" {
		writeError(w, http.StatusBadRequest, "Código 2FA es requerido", "MISSING_2FA_CODE")
		return
	}
	codes, err := h.twoFactor.Enable(authUser.ID, body.Token2FA)
	if err != nil {
		// Enabling with a wrong code is user-correctable: 400, not 401.
		if errors.Is(err, services.ErrInvalid2FACode) {
			writeError(w, http.StatusBadRequest, services.ErrInvalid2FACode.Message, services.ErrInvalid2FACode.Code)
			return
		}
		writeAuthServiceError(w, err, "2FA_ENABLE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"mensaje":      "2FA activado exitosamente. Guarda estos códigos en un lugar seguro",
		"backup_codes": codes,
	})
}

func (h *usuariosHandler) Disable2FA(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
		return
	}
	if err := h.twoFactor.Disable(authUser.ID); err != nil {
		writeAuthServiceError(w, err, "2FA_DISABLE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"mensaje": "2FA desactivado exitosamente",
	})
}

func (h *usuariosHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	authUser, ok := middlewares.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
		return
	}
	codes, err := h.twoFactor.RegenerateBackupCodes(authUser.ID)
	if err != nil {
		writeAuthServiceError(w, err, "BACKUP_CODE_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"backup_codes": codes,
	})
}

package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/utils"
)

// Tokens shorter than this cannot be a JWT; rejecting them skips the
// blacklist round trip and signature check.
const minTokenLength = 10

type userContextKey struct{}

// AuthUser is the identity the gatekeeper injects into the request context
// for downstream handlers.
type AuthUser struct {
	ID          uint
	Email       string
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Token       string
}

// UserFromContext retrieves the identity set by RequireAuth.
func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	return user, ok
}

// Gatekeeper enforces authentication on protected routes: bearer
// extraction, blacklist consultation, signature/expiry verification and
// payload checks, in that order.
type Gatekeeper struct {
	tokens    *utils.TokenIssuer
	blacklist *dbhelper.BlacklistStore
}

func NewGatekeeper(tokens *utils.TokenIssuer, blacklist *dbhelper.BlacklistStore) *Gatekeeper {
	return &Gatekeeper{tokens: tokens, blacklist: blacklist}
}

func GetTokenFromAuthorizationHeader(authHeader string) (string, bool) {
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}

func (g *Gatekeeper) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := GetTokenFromAuthorizationHeader(r.Header.Get("Authorization"))
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "Token no proporcionado", "TOKEN_MISSING")
			return
		}
		if len(token) < minTokenLength {
			writeAuthError(w, http.StatusUnauthorized, "Token inválido", "TOKEN_MALFORMED")
			return
		}
		blacklisted, err := g.blacklist.IsBlacklisted(token)
		if err != nil {
			log.Println("error consultando blacklist:", err)
			writeAuthError(w, http.StatusUnauthorized, "Error de autenticación", "AUTH_ERROR")
			return
		}
		if blacklisted {
			writeAuthError(w, http.StatusUnauthorized, "Token invalidado o sesión cerrada", "TOKEN_BLACKLISTED")
			return
		}
		claims, err := g.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				writeAuthError(w, http.StatusUnauthorized, "Token expirado", "TOKEN_EXPIRED")
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "Token inválido", "TOKEN_INVALID")
			return
		}
		// A step-up token only completes the 2FA flow; it never opens a
		// protected route.
		if claims.Step != "" {
			writeAuthError(w, http.StatusUnauthorized, "Token inválido", "TOKEN_INVALID")
			return
		}
		if claims.UserID == 0 || claims.Email == "" {
			writeAuthError(w, http.StatusUnauthorized, "Token inválido - payload incompleto", "TOKEN_INVALID_PAYLOAD")
			return
		}
		user := &AuthUser{
			ID:          claims.UserID,
			Email:       claims.Email,
			DisplayName: claims.DisplayName,
			IssuedAt:    claims.IssuedAt,
			ExpiresAt:   claims.ExpiresAt,
			Token:       token,
		}
		ctx := context.WithValue(r.Context(), userContextKey{}, user)
		next(w, r.WithContext(ctx))
	}
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  message,
		"codigo": code,
	})
}

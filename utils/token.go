package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// Session tokens authenticate protected requests; step-up tokens are only
// good for finishing the second-factor flow.
const SESSION_TOKEN_DURATION = 2 * time.Hour
const STEP_UP_TOKEN_DURATION = 5 * time.Minute

// STEP_2FA_VERIFICATION marks a step-up token's step claim.
const STEP_2FA_VERIFICATION = "2fa_verification"

var (
	ErrTokenExpired   = errors.New("token expirado")
	ErrTokenInvalid   = errors.New("token inválido")
	ErrTokenMalformed = errors.New("token malformado")
)

// TokenClaims is the decoded payload of a bearer token.
type TokenClaims struct {
	UserID      uint
	Email       string
	DisplayName string
	Step        string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// TokenIssuer signs and verifies bearer tokens with a single process-wide
// HMAC secret. It knows nothing about the blacklist.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret}
}

// IssueSessionToken creates a fully authenticated token, valid 2 hours.
func (t *TokenIssuer) IssueSessionToken(userID uint, email, displayName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":     userID,
		"email":  email,
		"nombre": displayName,
		"jti":    uuid.NewString(),
		"iat":    now.Unix(),
		"exp":    now.Add(SESSION_TOKEN_DURATION).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// IssueStepUpToken creates the short-lived token returned after a correct
// password when 2FA is enabled. It is never accepted on protected routes.
func (t *TokenIssuer) IssueStepUpToken(userID uint, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"step":  STEP_2FA_VERIFICATION,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(STEP_UP_TOKEN_DURATION).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature and expiry and returns the claims. Expired tokens
// yield ErrTokenExpired, everything else ErrTokenInvalid.
func (t *TokenIssuer) Verify(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return mapClaims(claims), nil
}

// Decode reads the claims without checking the signature or expiry. Logout
// uses this so revocation works even for tokens it can no longer verify.
func (t *TokenIssuer) Decode(tokenString string) (*TokenClaims, error) {
	parser := new(jwt.Parser)
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, ErrTokenMalformed
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return mapClaims(claims), nil
}

func mapClaims(claims jwt.MapClaims) *TokenClaims {
	out := &TokenClaims{}
	if id, ok := claims["id"].(float64); ok {
		out.UserID = uint(id)
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if nombre, ok := claims["nombre"].(string); ok {
		out.DisplayName = nombre
	}
	if step, ok := claims["step"].(string); ok {
		out.Step = step
	}
	if jti, ok := claims["jti"].(string); ok {
		out.TokenID = jti
	}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out
}

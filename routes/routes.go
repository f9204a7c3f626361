package routes

import (
	"unicode"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/middlewares"
	"github.com/recetario/apiv1/services"
)

var validate *validator.Validate

// Deps is everything the HTTP layer consumes; main wires it once.
type Deps struct {
	Auth       *services.AuthService
	TwoFactor  *services.TwoFactorService
	Users      *dbhelper.UserStore
	Gatekeeper *middlewares.Gatekeeper
}

func CreateRoutes(r *mux.Router, deps Deps) {
	validate = validator.New()
	validate.RegisterValidation("contrasena_fuerte", strongPassword)

	// Credential-bearing endpoints share one IP limiter.
	lmt := tollbooth.NewLimiter(5, &limiter.ExpirableOptions{})
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(`{"error":"Demasiadas peticiones","codigo":"RATE_LIMITED"}`)

	s := r.PathPrefix("/usuarios").Subrouter()
	UsuariosRouter(s, deps, lmt)
}

// strongPassword requires at least one lower-case letter, one upper-case
// letter and one digit, matching the registration policy.
func strongPassword(fl validator.FieldLevel) bool {
	var hasLower, hasUpper, hasDigit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLower && hasUpper && hasDigit
}

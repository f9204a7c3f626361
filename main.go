package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/recetario/apiv1/dbhelper"
	"github.com/recetario/apiv1/middlewares"
	"github.com/recetario/apiv1/routes"
	"github.com/recetario/apiv1/services"
	"github.com/recetario/apiv1/utils"
)

func main() {
	// Setting up environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	// Setting up logs
	file, err := os.OpenFile("logs.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatal(err)
	}
	log.SetOutput(file)
	// Setting up database
	db, err := dbhelper.OpenDB()
	if err != nil {
		log.Fatal(err)
	}
	if err := dbhelper.InitDB(db); err != nil {
		log.Fatal(err)
	}
	secret := os.Getenv(utils.JWT_SECRET_KEY)
	if secret == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}
	issuer := os.Getenv(utils.TOTP_ISSUER)
	if issuer == "" {
		issuer = utils.DEFAULT_TOTP_ISSUER
	}
	// Wiring components
	users := dbhelper.NewUserStore(db)
	blacklist := dbhelper.NewBlacklistStore(db)
	tokens := utils.NewTokenIssuer([]byte(secret))
	twoFactor := services.NewTwoFactorService(users, utils.NewTOTPEngine(issuer), services.NewChartURLRenderer())
	auth := services.NewAuthService(users, blacklist, tokens, twoFactor)
	gatekeeper := middlewares.NewGatekeeper(tokens, blacklist)
	// Opening the webserver
	r := mux.NewRouter()
	r.StrictSlash(true)
	routes.CreateRoutes(r, routes.Deps{
		Auth:       auth,
		TwoFactor:  twoFactor,
		Users:      users,
		Gatekeeper: gatekeeper,
	})
	port := os.Getenv(utils.PORT)
	if port == "" {
		port = utils.DEFAULT_PORT
	}
	log.Fatal(http.ListenAndServe(":"+port, r))
}

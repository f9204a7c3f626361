package utils

// environment variables
const DBUSER = "DBUSER"
const DBPASS = "DBPASS"
const DBHOST = "DBHOST"
const DBNAME = "DBNAME"
const JWT_SECRET_KEY = "JWT_SECRET_KEY"
const TOTP_ISSUER = "TOTP_ISSUER"
const PORT = "PORT"

// defaults
const DEFAULT_DB_HOST = "127.0.0.1:3306"
const DEFAULT_PORT = "5005"
const DEFAULT_TOTP_ISSUER = "Recetario"

package config // package config loads application configuration from environment variables

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The access and refresh secrets are distinct so
// that leaking one does not compromise verification of the other.
type Config struct {
	Env            string        // application environment ("dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	AccessSecret   string        // secret signing access tokens
	RefreshSecret  string        // secret signing refresh tokens
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	CookieSameSite http.SameSite // SameSite policy for auth cookies
	StorageDriver  string        // "local" or "remote"
	UploadDir      string        // directory for locally stored images
	UploadBaseURL  string        // public URL prefix for locally stored images
	RemoteStoreURL string        // base URL of the remote object store
	RemoteStoreKey string        // bearer key for the remote object store
}

// Load reads configuration from environment variables. Required variables
// are enforced by must() and missing values exit with a fatal log message;
// in particular an unconfigured token secret is fatal at startup rather
// than silently falling back to a default signing key.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		AccessSecret:   must("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  must("REFRESH_TOKEN_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		CookieSameSite: sameSite(os.Getenv("COOKIE_SAMESITE")),
		StorageDriver:  envStr("STORAGE_DRIVER", "local"),
		UploadDir:      envStr("UPLOAD_DIR", "uploads/images"),
		UploadBaseURL:  envStr("UPLOAD_BASE_URL", "/uploads/images"),
		RemoteStoreURL: os.Getenv("REMOTE_STORE_URL"),
		RemoteStoreKey: os.Getenv("REMOTE_STORE_KEY"),
	}
}

// IsProd reports whether the app runs with a production configuration.
// Auth cookies are only marked Secure in production.
func (c Config) IsProd() bool { return c.Env == "prod" }

// sameSite maps a deployment parameter to the http.SameSite policy.
// Lax is the default when the variable is unset or unknown.
func sameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

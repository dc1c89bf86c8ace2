package config

import (
	"fmt"
	"net/http"
	"time"
)

// AppConfig contains application host/port configuration
type AppConfig struct {
	Host string `env:"APP_HOST" env-default:"localhost"`
	Port uint16 `env:"APP_PORT" env-default:"8080"`
}

// JWTConfig holds JWT authentication configuration.
// The same secret signs the bearer tokens the identity provider adapter
// verifies; impersonation tokens use their own secret (ImpersonationConfig).
type JWTConfig struct {
	Secret         string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer         string `env:"JWT_ISSUER" env-default:"coach-admin"`
	Audience       string `env:"JWT_AUDIENCE" env-default:"coach-admin"`
	CookieHttpOnly bool   `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure   bool   `env:"COOKIE_SECURE" env-default:"true"`
}

// CookieSameSite returns the appropriate SameSite setting based on CookieSecure
func (j JWTConfig) CookieSameSite() http.SameSite {
	if j.CookieSecure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

// ImpersonationConfig holds impersonation token and session settings.
// TTL is a policy constant loaded from the environment, never user input;
// the minted token and the derived session cookie share it.
type ImpersonationConfig struct {
	TokenSecret string        `env:"IMPERSONATION_TOKEN_SECRET" env-default:"very-secure-impersonation-secret"`
	TTL         time.Duration `env:"IMPERSONATION_TTL" env-default:"30m"`
	RedirectURL string        `env:"IMPERSONATION_REDIRECT_URL" env-default:"/"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     uint16 `env:"DB_PORT" env-default:"5432"`
	Database string `env:"DB_NAME" env-default:"coach_admin_db"`
	User     string `env:"DB_USER" env-default:"coach"`
	Password string `env:"DB_PASSWORD" env-default:"pwd"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// SMTPConfig contains outbound email settings for security notifications
type SMTPConfig struct {
	Host            string `env:"SMTP_HOST" env-default:"localhost"`
	Port            int    `env:"SMTP_PORT" env-default:"1025"`
	Username        string `env:"SMTP_USERNAME" env-default:""`
	Password        string `env:"SMTP_PASSWORD" env-default:""`
	TLS             bool   `env:"SMTP_TLS" env-default:"false"`
	From            string `env:"SMTP_FROM" env-default:"noreply@macrominded.example"`
	SecurityMailbox string `env:"SECURITY_MAILBOX" env-default:"security@macrominded.example"`
}

// Config is the full service configuration loaded by cmd/admin
type Config struct {
	App           AppConfig
	JWT           JWTConfig
	Impersonation ImpersonationConfig
	Database      DatabaseConfig
	SMTP          SMTPConfig
}

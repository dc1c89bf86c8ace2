package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/macrominded/coach-admin/pkg/audit"
	auditapi "github.com/macrominded/coach-admin/pkg/audit/api"
	"github.com/macrominded/coach-admin/pkg/config"
	"github.com/macrominded/coach-admin/pkg/impersonate"
	impersonateapi "github.com/macrominded/coach-admin/pkg/impersonate/api"
	"github.com/macrominded/coach-admin/pkg/notification"
	"github.com/macrominded/coach-admin/pkg/policy"
	"github.com/macrominded/coach-admin/pkg/ratelimit"
	"github.com/macrominded/coach-admin/pkg/router"
	"github.com/macrominded/coach-admin/pkg/session"
	"github.com/macrominded/coach-admin/pkg/user"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(-1)
	}
	defer dbPool.Close()

	userRepo := user.NewPostgresUserRepository(dbPool)
	userService := user.NewUserService(userRepo)

	auditRepo := audit.NewPostgresAuditRepository(dbPool)
	auditService := audit.NewAuditService(auditRepo)

	impersonationPolicy := policy.NewImpersonationPolicy(userService)

	tokenService := impersonate.NewTokenService(
		cfg.Impersonation.TokenSecret,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.Impersonation.TTL,
	)

	var notifier notification.SecurityNotifier = notification.NewNoopNotifier()
	if cfg.SMTP.Host != "" {
		emailNotifier, err := notification.NewEmailNotifier(notification.SMTPConfig{
			Host:            cfg.SMTP.Host,
			Port:            cfg.SMTP.Port,
			TLS:             cfg.SMTP.TLS,
			Username:        cfg.SMTP.Username,
			Password:        cfg.SMTP.Password,
			From:            cfg.SMTP.From,
			SecurityMailbox: cfg.SMTP.SecurityMailbox,
		})
		if err != nil {
			slog.Warn("Email notifier unavailable, using noop", "err", err)
		} else {
			notifier = emailNotifier
		}
	}

	impersonateService := impersonate.NewService(
		impersonationPolicy,
		userService,
		auditService,
		tokenService,
		impersonate.WithNotifier(notifier),
		impersonate.WithRedirectURL(cfg.Impersonation.RedirectURL),
	)

	consumedRepo := impersonate.NewPostgresConsumedTokenRepository(dbPool)
	channel := session.NewChannel(tokenService, consumedRepo, userService, session.CookieOptions{
		HttpOnly: cfg.JWT.CookieHttpOnly,
		Secure:   cfg.JWT.CookieSecure,
	})

	impersonateHandle := impersonateapi.NewHandler(impersonateService, channel)
	auditHandle := auditapi.NewHandler(auditService)

	auth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)

	r := router.New(router.Config{
		ImpersonateHandle: impersonateHandle,
		AuditHandle:       auditHandle,
		Channel:           channel,
		Auth:              auth,
		RateLimit:         ratelimit.NewMiddleware(ratelimit.DefaultExchangeConfig()),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	slog.Info("Starting coach-admin", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}

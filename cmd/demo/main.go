// Package main runs coach-admin without a database, using file-based
// repositories under ./data. This is useful for:
// - Quick development and testing
// - Trying the impersonation flow without database setup
//
// On startup it seeds an admin and a client account and prints a ready-made
// admin bearer token, so the whole flow is exercisable with curl.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/macrominded/coach-admin/pkg/audit"
	auditapi "github.com/macrominded/coach-admin/pkg/audit/api"
	"github.com/macrominded/coach-admin/pkg/identity"
	"github.com/macrominded/coach-admin/pkg/impersonate"
	impersonateapi "github.com/macrominded/coach-admin/pkg/impersonate/api"
	"github.com/macrominded/coach-admin/pkg/policy"
	"github.com/macrominded/coach-admin/pkg/ratelimit"
	"github.com/macrominded/coach-admin/pkg/router"
	"github.com/macrominded/coach-admin/pkg/session"
	"github.com/macrominded/coach-admin/pkg/user"
)

const (
	jwtSecret = "demo-secret-change-in-production"
	issuer    = "coach-admin-demo"
	dataDir   = "./data"
	port      = 4000
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting coach-admin demo (no database required)", "dataDir", dataDir)

	userRepo, err := user.NewFileUserRepository(dataDir)
	if err != nil {
		slog.Error("Failed to open user repository", "err", err)
		os.Exit(-1)
	}
	userService := user.NewUserService(userRepo)

	auditRepo, err := audit.NewFileAuditRepository(dataDir)
	if err != nil {
		slog.Error("Failed to open audit repository", "err", err)
		os.Exit(-1)
	}
	auditService := audit.NewAuditService(auditRepo)

	admin, client := seedAccounts(userRepo)

	tokenService := impersonate.NewTokenService(jwtSecret, issuer, issuer, 30*time.Minute)

	impersonateService := impersonate.NewService(
		policy.NewImpersonationPolicy(userService),
		userService,
		auditService,
		tokenService,
		impersonate.WithRedirectURL("/impersonate/status"),
	)

	channel := session.NewChannel(
		tokenService,
		impersonate.NewInMemConsumedTokenRepository(),
		userService,
		session.CookieOptions{HttpOnly: true},
	)

	auth := jwtauth.New("HS256", []byte(jwtSecret), nil)

	r := router.New(router.Config{
		ImpersonateHandle: impersonateapi.NewHandler(impersonateService, channel),
		AuditHandle:       auditapi.NewHandler(auditService),
		Channel:           channel,
		Auth:              auth,
		RateLimit:         ratelimit.NewMiddleware(ratelimit.DefaultExchangeConfig()),
	})

	printQuickstart(auth, admin, client)

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "err", err)
		os.Exit(-1)
	}
}

// seedAccounts ensures the demo admin and client exist, surviving restarts
// via the file repository
func seedAccounts(repo *user.FileUserRepository) (user.User, user.User) {
	ctx := context.Background()

	admin := findByEmail(ctx, repo, "admin@example.com")
	if admin == nil {
		created, err := repo.AddUser(ctx, user.User{
			Email:       "admin@example.com",
			DisplayName: "Demo Admin",
			Roles:       []string{identity.RoleAdmin},
		})
		if err != nil {
			slog.Error("Failed to seed admin", "err", err)
			os.Exit(-1)
		}
		admin = &created
	}

	client := findByEmail(ctx, repo, "client@example.com")
	if client == nil {
		created, err := repo.AddUser(ctx, user.User{
			Email:       "client@example.com",
			DisplayName: "Demo Client",
			Roles:       []string{"client"},
		})
		if err != nil {
			slog.Error("Failed to seed client", "err", err)
			os.Exit(-1)
		}
		client = &created
	}

	return *admin, *client
}

func findByEmail(ctx context.Context, repo *user.FileUserRepository, email string) *user.User {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		return nil
	}
	for _, u := range users {
		if u.Email == email {
			return &u
		}
	}
	return nil
}

func printQuickstart(auth *jwtauth.JWTAuth, admin, client user.User) {
	_, bearer, err := auth.Encode(map[string]interface{}{
		"sub": admin.ID.String(),
		"extra_claims": map[string]interface{}{
			"roles": admin.Roles,
			"email": admin.Email,
		},
	})
	if err != nil {
		slog.Error("Failed to mint demo bearer", "err", err)
		os.Exit(-1)
	}

	fmt.Println()
	fmt.Println("Demo accounts:")
	fmt.Printf("  admin:  %s (%s)\n", admin.Email, admin.ID)
	fmt.Printf("  client: %s (%s)\n", client.Email, client.ID)
	fmt.Println()
	fmt.Println("Try the flow:")
	fmt.Printf("  curl -s -X POST localhost:%d/impersonate \\\n", port)
	fmt.Printf("    -H 'Authorization: Bearer %s' \\\n", bearer)
	fmt.Printf("    -d '{\"user_id\": \"%s\"}'\n", client.ID)
	fmt.Printf("  curl -v 'localhost:%d/impersonate/exchange?token=<token from above>'\n", port)
	fmt.Printf("  curl -s --cookie '%s=<cookie from above>' localhost:%d/impersonate/status\n", session.CookieName, port)
	fmt.Println()
}

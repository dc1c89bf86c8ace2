// Package config holds environment-driven configuration for the coach-admin
// service. Structs use cleanenv tags; each concern (app, JWT, impersonation,
// database, SMTP) has its own struct so binaries compose only what they need.
package config

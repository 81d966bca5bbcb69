// Command devtoken prints a signed bearer token for local development.
// Usage: go run ./cmd/devtoken -tenant <uuid> -user <uuid> [-email a@b.c] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"invoicer/internal/config"
	"invoicer/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Environment == "production" {
		return fmt.Errorf("refusing to mint development tokens in production")
	}

	tenant := flag.String("tenant", "", "tenant ID (random when empty)")
	user := flag.String("user", "", "user ID (random when empty)")
	email := flag.String("email", "dev@example.com", "email claim")
	ttl := flag.Duration("ttl", cfg.JWT.DevTTL, "token lifetime")
	flag.Parse()

	tenantID, err := parseOrNew(*tenant)
	if err != nil {
		return fmt.Errorf("invalid tenant ID: %w", err)
	}
	userID, err := parseOrNew(*user)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	token, err := service.NewTokenService(cfg.JWT).IssueToken(tenantID, userID, *email, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func parseOrNew(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(s)
}

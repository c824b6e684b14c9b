package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/dayplan-api/internal/models"
	"github.com/noah-isme/dayplan-api/internal/service"
	"github.com/noah-isme/dayplan-api/pkg/config"
)

// plantoken mints a bearer token for an API client using the server's JWT secret.
func main() {
	var (
		clientID string
		scopes   string
		expiry   time.Duration
	)

	flag.StringVar(&clientID, "client", "", "Client identifier placed in the token subject")
	flag.StringVar(&scopes, "scopes", "plans:write", "Comma separated scopes (plans:write, tasklists:write)")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime; defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.JWT.Expiration
	}

	granted, err := parseScopes(scopes)
	if err != nil {
		log.Fatalf("invalid scopes: %v", err)
	}

	tokens := service.NewTokenService(nil, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Expiry: expiry,
		Issuer: "dayplan-api",
	})
	token, expiresAt, err := tokens.Issue(clientID, granted)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "token for %s expires %s\n", clientID, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}

func parseScopes(raw string) ([]models.Scope, error) {
	known := map[models.Scope]struct{}{
		models.ScopePlansWrite:     {},
		models.ScopeTaskListsWrite: {},
	}
	seen := make(map[models.Scope]struct{})
	out := make([]models.Scope, 0)
	for _, part := range strings.Split(raw, ",") {
		scope := models.Scope(strings.TrimSpace(part))
		if scope == "" {
			continue
		}
		if _, ok := known[scope]; !ok {
			return nil, fmt.Errorf("unknown scope %q", scope)
		}
		if _, dup := seen[scope]; dup {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out, nil
}

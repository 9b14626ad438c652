package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/noah-isme/harmony-timetable-api/internal/models"
	"github.com/noah-isme/harmony-timetable-api/internal/service"
	"github.com/noah-isme/harmony-timetable-api/pkg/config"
)

// issue-token mints an access token signed with the API's JWT settings, for
// operators and upstream systems that own user accounts.
func main() {
	var (
		userID   string
		role     string
		email    string
		fullName string
	)
	flag.StringVar(&userID, "user", "", "User ID placed in the token (required)")
	flag.StringVar(&role, "role", string(models.RoleScheduler), "Role: SUPERADMIN, ADMIN, SCHEDULER or VIEWER")
	flag.StringVar(&email, "email", "", "Email claim")
	flag.StringVar(&fullName, "name", "", "Full name claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	parsed := models.UserRole(strings.ToUpper(role))
	if !parsed.Valid() {
		log.Fatalf("unknown role %q", role)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: cfg.JWT.Expiration,
	})
	token, expiresAt, err := tokens.Issue(userID, parsed, email, fullName)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
}

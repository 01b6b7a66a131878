// Command admintoken mints a bearer token for the /api/admin routes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/diagnosis/tunisia-tours/pkg/auth"
	"github.com/diagnosis/tunisia-tours/pkg/config"
	"github.com/diagnosis/tunisia-tours/pkg/logger"
)

func main() {
	cfg := config.Load()

	email := flag.String("email", cfg.Email.OperatorEmail, "operator email to embed in the token")
	ttl := flag.Duration("ttl", cfg.Auth.AdminTokenTTL, "token lifetime")
	flag.Parse()

	token, err := auth.NewAdminToken(*email, cfg.Auth.JWTSecret, *ttl)
	if err != nil {
		logger.Error("Failed to mint admin token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

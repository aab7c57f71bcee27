// Command devtoken mints an HS256 identity token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	"scholarstream/internal/common/security"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/platform/config"
)

func main() {
	email := flag.String("email", "", "caller email (required)")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -email user@example.com [-name Jane] [-ttl 24h]")
		os.Exit(2)
	}

	cfg := config.Load()
	token, err := security.GenerateToken(security.NewTokenAuth(cfg.JWTKey), model.Identity{
		Subject: "dev-" + model.NormalizeEmail(*email),
		Email:   *email,
		Name:    *name,
	}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

// Command racevault-token prints a signed session token for a user so the
// server can run with AUTH_MODE=jwt before a login flow exists.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"racevault/internal/auth"
	"racevault/internal/cli"
	"racevault/internal/config"
)

func main() {
	cli.LoadEnvFile()

	user := flag.String("user", config.PlaceholderUserID, "user ID the token is issued for")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	cookie := flag.Bool("cookie", false, "print a Set-Cookie style line instead of the bare token")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		fatalf("JWT_SECRET must be set to at least 32 characters")
	}
	id, err := uuid.Parse(*user)
	if err != nil {
		fatalf("invalid -user %q: %v", *user, err)
	}
	if *ttl <= 0 {
		fatalf("-ttl must be positive")
	}

	token, err := auth.NewTokenService(secret).Issue(id, *ttl)
	if err != nil {
		fatalf("issue token: %v", err)
	}
	if *cookie {
		fmt.Printf("%s=%s; Path=/; HttpOnly; SameSite=Lax; Max-Age=%d\n", auth.CookieName, token, int(ttl.Seconds()))
		return
	}
	fmt.Println(token)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

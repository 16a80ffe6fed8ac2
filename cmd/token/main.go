package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aa87864763/wanyongzhi/internal/auth"
	"github.com/aa87864763/wanyongzhi/internal/config"
)

// main prints a bearer token for the mutating question routes.
func main() {
	os.Exit(run())
}

func run() int {
	subject := flag.String("subject", "editor", "token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	if !cfg.Auth.Enabled() {
		fmt.Fprintln(os.Stderr, "AUTH_SECRET is not set; the server accepts unauthenticated requests")
		return 1
	}

	lifetime := cfg.Auth.TokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := auth.IssueToken([]byte(cfg.Auth.Secret), *subject, lifetime, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "token error: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

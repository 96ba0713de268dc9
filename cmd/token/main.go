// Command token mints a bearer token for local development, signed with the
// same secret the service verifies against.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/auth"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/config"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
)

func main() {
	user := flag.String("user", "", "user id to put in the subject claim")
	admin := flag.Bool("admin", false, "grant the admin role")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: token -user <id> [-admin] [-ttl 24h]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	v := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	tok, err := v.Sign(model.Actor{UserID: *user, IsAdmin: *admin}, time.Now(), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

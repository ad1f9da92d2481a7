// Command gentoken mints a signed token for exercising the exchange endpoint.
//
//	gentoken -alg HS512 -secret s3cret -sub user-123 -ttl 1h
//	gentoken -alg RS256 -key private.pem -kid key-1 -iss https://issuer -aud exchange
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"exchangeservice/internal/auth"
)

func envOr(names []string, fallback string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	alg := flag.String("alg", envOr([]string{"EXCHANGE_AUTH_ALGORITHM", "AUTH_ALG"}, "HS512"), "signing algorithm")
	secret := flag.String("secret", envOr([]string{"EXCHANGE_AUTH_JWT_SECRET", "EXCHANGE_JWT_SECRET", "JWT_SECRET"}, ""), "shared secret for HS* algorithms")
	keyPath := flag.String("key", "", "PEM private key for RS*/PS*/ES* algorithms")
	sub := flag.String("sub", "user-123", "account identifier placed in the sub claim")
	claim := flag.String("claim", "", "extra claim name that also carries the account identifier")
	iss := flag.String("iss", envOr([]string{"EXCHANGE_AUTH_ISSUER", "JWT_ISSUER"}, ""), "issuer")
	aud := flag.String("aud", envOr([]string{"EXCHANGE_AUTH_AUDIENCE", "JWT_AUDIENCE"}, ""), "comma-separated audiences")
	kid := flag.String("kid", "", "key id header")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime, 0 for no expiry")
	flag.Parse()

	var pemData []byte
	if *keyPath != "" {
		data, err := os.ReadFile(*keyPath)
		if err != nil {
			log.Fatalf("Failed to read key: %v", err)
		}
		pemData = data
	}

	key, err := auth.ParseSigningKey(*alg, *secret, pemData)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}

	req := auth.TokenRequest{
		Algorithm: *alg,
		Subject:   *sub,
		Issuer:    *iss,
		Audience:  auth.ParseAudience(*aud),
		KeyID:     *kid,
		TTL:       *ttl,
	}
	if *claim != "" && *claim != "sub" {
		req.Extra = map[string]any{*claim: *sub}
	}

	token, err := auth.SignToken(req, key)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

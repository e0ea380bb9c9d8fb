package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"careloop.com/careloop/security"
)

func main() {
	id := flag.Int("id", 0, "caregiver id")
	username := flag.String("username", "", "login name")
	email := flag.String("email", "", "email address")
	role := flag.String("role", "caregiver", "role claim")
	device := flag.String("device", "", "device id for mobile tokens")
	expires := flag.Int64("expires", 3600, "expiry in seconds")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := security.CreateIdentityToken(&security.CareloopIdentity{
		Id:       *id,
		UserName: *username,
		Role:     *role,
		Email:    *email,
		DeviceId: *device,
	}, secret, *expires)
	if err != nil {
		log.Fatalf("failed to create token: %v", err)
	}

	fmt.Println(token)
}

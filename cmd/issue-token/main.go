package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	id := flag.String("id", "", "actor id (seller id, staff id; empty for system)")
	name := flag.String("name", "", "display name recorded in the audit trail")
	role := flag.String("role", string(model.RoleStaff), "seller, staff, admin or system")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	// 2. Validate actor
	r, err := model.ParseRole(*role)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *id == "" && r != model.RoleSystem {
		log.Fatalf("❌ -id is required for role %s", r)
	}

	// 3. Sign
	token, err := jwt.GenerateToken([]byte(secret), *id, *name, string(r), *ttl)
	if err != nil {
		log.Fatalf("❌ Failed to sign token: %v", err)
	}

	log.Printf("✅ Token for %s (%s) valid for %s", *id, r, *ttl)
	fmt.Println(token)
}

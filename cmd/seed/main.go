// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the admin user (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"storefront-auth/internal/config"
	"storefront-auth/internal/db"
	"storefront-auth/internal/security"
	userdomain "storefront-auth/internal/user/domain"
	userrepo "storefront-auth/internal/user/repository"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
	devEmail      = "dev@example.com"
	devPassword   = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	hasher := security.NewHasher(cfg.BcryptCost)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("lookup admin: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", adminEmail)
		return
	}

	seedUser(ctx, users, hasher, adminEmail, adminPassword, userdomain.RoleAdmin)
	seedUser(ctx, users, hasher, devEmail, devPassword, userdomain.RoleUser)
	log.Println("seed: done")
}

func seedUser(ctx context.Context, users *userrepo.PostgresRepository, hasher *security.Hasher, email, password string, role userdomain.Role) {
	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		log.Fatalf("hash %s: %v", email, err)
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create %s: %v", email, err)
	}
	log.Printf("seed: created %s (%s)", email, role)
}

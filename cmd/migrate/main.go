package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"thakii-backend/internal/domain"
	"thakii-backend/internal/repository"
	"thakii-backend/internal/service/admin"
	"thakii-backend/pkg/database"
	"thakii-backend/pkg/logger"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed]"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command {
	case "drop":
		if err := dropTables(ctx, db.Pool); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, db.Pool); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		ensured, err := seedSuperAdmins(ctx, db)
		if err != nil {
			log.Fatalf("Failed to seed super admins: %v", err)
		}
		fmt.Printf("✅ Super admins seeded (%d created or restored)\n", ensured)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, pool database.Pool) error {
	queries := []string{
		`DROP TABLE IF EXISTS admin_users CASCADE`,
	}

	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, pool database.Pool) error {
	queries := []string{
		// Admin registry. Records are soft-deleted via status.
		`CREATE TABLE IF NOT EXISTS admin_users (
			id VARCHAR(26) PRIMARY KEY,
			email VARCHAR(320) NOT NULL,
			role VARCHAR(50) NOT NULL DEFAULT 'admin',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			is_super_admin BOOLEAN NOT NULL DEFAULT false,
			description TEXT NOT NULL DEFAULT '',
			added_by VARCHAR(320) NOT NULL DEFAULT '',
			updated_by VARCHAR(320),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed_by VARCHAR(320),
			removed_at TIMESTAMPTZ,
			last_login TIMESTAMPTZ,
			login_count INTEGER NOT NULL DEFAULT 0,
			CONSTRAINT admin_users_status_check CHECK (status IN ('active', 'removed'))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_admin_users_email ON admin_users (lower(email))`,
		`CREATE INDEX IF NOT EXISTS idx_admin_users_created_at ON admin_users (created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func seedSuperAdmins(ctx context.Context, db *database.PostgresDB) (int, error) {
	var emails []string
	for _, email := range strings.Split(os.Getenv("SUPER_ADMIN_EMAILS"), ",") {
		if email = strings.TrimSpace(email); email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return 0, fmt.Errorf("SUPER_ADMIN_EMAILS is empty")
	}

	registry := admin.NewRegistry(repository.NewAdminRepository(db), domain.NewSuperAdminSet(emails...), logger.NewNop())
	return registry.EnsureSuperAdminsExist(ctx)
}

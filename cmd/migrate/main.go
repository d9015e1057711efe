package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"portfolio-be/pkg/database"
)

const usage = "Usage: go run ./cmd/migrate [up|down|version|force N]"

func main() {
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

	m, err := database.NewMigrator(dbURL)
	if err != nil {
		log.Fatalf("Failed to open migrations: %v", err)
	}
	defer m.Close()

	command := os.Args[1]
	switch command {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		fmt.Println("✅ Migrations applied")

	case "down":
		if err := ignoreNoChange(m.Steps(-1)); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Println("✅ Rolled back one migration")

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("Failed to read version: %v", err)
		}
		fmt.Printf("Version %d (dirty: %t)\n", v, dirty)

	case "force":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		v, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("Invalid version %q: %v", os.Args[2], err)
		}
		if err := m.Force(v); err != nil {
			log.Fatalf("Failed to force version: %v", err)
		}
		fmt.Printf("✅ Forced version %d\n", v)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("Nothing to do")
		return nil
	}
	return err
}

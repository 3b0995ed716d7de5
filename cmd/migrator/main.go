package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var storagePath, migrationsPath, direction string

	flag.StringVar(&storagePath, "storage-path", "", "user:password@host:port/db?sslmode=disable")
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to a service directory under migrations/")
	flag.StringVar(&direction, "direction", "up", "up or down")
	flag.Parse()

	if storagePath == "" {
		storagePath = os.Getenv("STORAGE_PATH")
		if storagePath == "" {
			panic("empty storage path")
		}
	}
	if migrationsPath == "" {
		migrationsPath = os.Getenv("MIGRATIONS_PATH")
		if migrationsPath == "" {
			panic("empty migrations path")
		}
	}

	m, err := migrate.New(
		"file://"+migrationsPath,
		fmt.Sprintf("postgres://%s", storagePath),
	)
	if err != nil {
		panic(err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		panic(fmt.Sprintf("unknown direction %q", direction))
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}
		panic(err)
	}

	fmt.Printf("migrations applied: %s\n", direction)
}

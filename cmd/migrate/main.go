// migrate applies the embedded schema migrations. Run it directly with
// go run ./cmd/migrate or through ./scripts/migrate.sh.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"archipelago/backend/internal/config"
	"archipelago/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction, up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("config:", err)
	}
	if cfg.DatabaseURL == "" {
		fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	err = migrate.Run(cfg.DatabaseURL, *direction)
	switch {
	case err == nil:
		fmt.Println("migrations applied")
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("schema already up to date")
	default:
		fatal("migrate:", err)
	}
}

func fatal(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"borderdesk/internal/config"
)

const usage = "Usage: migrate [-path dir] [up|down|steps N|force V|version]"

func main() {
	path := flag.String("path", "db/migrations", "migrations directory")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	m, err := migrate.New("file://"+*path, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch cmd := flag.Arg(0); cmd {
	case "up":
		check("up", m.Up())
		log.Println("manifest schema is up to date")

	case "down":
		check("down", m.Down())
		log.Println("manifest schema reverted")

	case "steps":
		n := intArg("steps")
		check("steps", m.Steps(n))
		log.Printf("applied %d migration steps", n)

	case "force":
		v := intArg("force")
		check("force", m.Force(v))
		log.Printf("forced schema version to %d", v)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return
		}
		if err != nil {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)

	default:
		fmt.Printf("unknown command: %s\n%s\n", cmd, usage)
		os.Exit(1)
	}
}

func check(cmd string, err error) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration %s failed: %v", cmd, err)
	}
}

func intArg(cmd string) int {
	if flag.NArg() < 2 {
		log.Fatalf("%s requires a number argument", cmd)
	}
	n, err := strconv.Atoi(flag.Arg(1))
	if err != nil {
		log.Fatalf("invalid %s argument: %v", cmd, err)
	}
	return n
}

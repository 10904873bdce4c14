// Package config is the one deliberately stdlib-only piece of the ambient
// stack (see DESIGN.md): nothing in the retrieved example corpus wires a
// configuration library, so this mirrors the flag+environment-variable
// style the teacher's own cmd-less library leaves to its callers, rather
// than inventing a dependency the corpus never reaches for.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Config is the environment-driven connection wiring the Transport Layer
// (out of scope) needs to stand up a demo server around the planner
// (spec §1 "CLI / config").
type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	MaxOpenConns   int
	QueryTimeoutMS int
}

// Load parses flags (falling back to environment variables, falling back
// to defaults) into a Config. args is normally os.Args[1:].
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("queryplanner", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.DatabaseURL, "database-url", envOr("DATABASE_URL", ""), "Postgres connection string")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", envOr("HTTP_ADDR", ":8080"), "address to serve GraphQL on")
	fs.IntVar(&cfg.MaxOpenConns, "max-open-conns", envIntOr("MAX_OPEN_CONNS", 10), "max pooled database connections")
	fs.IntVar(&cfg.QueryTimeoutMS, "query-timeout-ms", envIntOr("QUERY_TIMEOUT_MS", 5000), "per-request query timeout in milliseconds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: database-url (or DATABASE_URL) is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

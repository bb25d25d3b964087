package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"reelgen/internal/infra"
	"reelgen/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag    string
		envFlag    string
		schemaFlag bool
	)
	flag.StringVar(&keyFlag, "key", "", "Video provider API key (fallbacks to the environment)")
	flag.StringVar(&envFlag, "env", "BLACKBOX_API", "Environment variable to read the key from when -key is empty")
	flag.BoolVar(&schemaFlag, "init-schema", false, "Create the integration_tokens table if it does not exist")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envFlag))
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "API key is required via -key or %s\n", envFlag)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", credentials.ProviderBlackbox).Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if schemaFlag {
		if err := store.EnsureSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create integration_tokens: %v\n", err)
			os.Exit(1)
		}
	}

	if err := store.SetBlackboxAPIKey(ctx, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Video provider API key stored successfully")
}

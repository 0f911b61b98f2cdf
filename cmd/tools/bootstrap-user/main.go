// Command bootstrap-user creates an account directly in the datastore. It is
// intended for provisioning the first user of a deployment before the HTTP
// API is reachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

func main() {
	dataPath := flag.String("data", "", "path to JSON datastore")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	username := flag.String("username", "", "username for the new account")
	email := flag.String("email", "", "email for the new account")
	password := flag.String("password", "", "password for the new account")
	fullName := flag.String("full-name", "", "display name for the new account")
	flag.Parse()

	if *username == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-user -username NAME -email ADDR -password SECRET [-full-name NAME] [-data FILE | -postgres-dsn DSN]")
		os.Exit(2)
	}

	store, err := openStore(*dataPath, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open datastore: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	user, err := store.CreateUser(storage.CreateUserParams{
		Username: *username,
		Email:    *email,
		Password: *password,
		FullName: *fullName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
}

func openStore(dataPath, dsn string) (storage.Repository, error) {
	dsn = strings.TrimSpace(firstNonEmpty(dsn, os.Getenv("VIDTUBE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
	if dsn != "" {
		pgStore, err := storage.NewPostgresRepository(dsn)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pgStore.Close()
			return nil, err
		}
		return pgStore, nil
	}

	path := firstNonEmpty(dataPath, os.Getenv("VIDTUBE_DATA"), "data/store.json")
	return storage.NewJSONRepository(path)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/models"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: supportline-cli migrate")
			fmt.Println()
			fmt.Println("Run database migrations from the migrations/ directory.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runMigrate())
	case "seed":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: supportline-cli seed")
			fmt.Println()
			fmt.Println("Seed the database with two demo conversations.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runSeed())
	case "token":
		if hasFlag("--help", os.Args[2:]) || len(os.Args) < 3 {
			fmt.Println("Usage: supportline-cli token <address> | --operator")
			fmt.Println()
			fmt.Println("Issue an access token for a user address or for the operator.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  JWT_SECRET  Signing secret shared with the server (required)")
			return
		}
		os.Exit(runToken(os.Args[2]))
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: supportline-cli health")
			fmt.Println()
			fmt.Println("Check if the supportline server is running.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("supportline-cli %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: supportline-cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate  Run database migrations")
	fmt.Println("  seed     Seed demo conversations")
	fmt.Println("  token    Issue an access token")
	fmt.Println("  health   Check if the server is running")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'supportline-cli <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- migrate ---

func runMigrate() int {
	dbURL := requireEnv("DATABASE_URL")

	fmt.Println("connecting to database...")
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: migration init failed: %v\n", err)
		return 1
	}
	defer m.Close()

	fmt.Println("running migrations...")
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		fmt.Fprintf(os.Stderr, "error: migration failed: %v\n", err)
		return 1
	}

	v, dirty, _ := m.Version()
	if err == migrate.ErrNoChange {
		fmt.Printf("no new migrations (current version: %d)\n", v)
	} else {
		fmt.Printf("migrations applied (version: %d, dirty: %v)\n", v, dirty)
	}
	return 0
}

// --- seed ---

type seedMessage struct {
	owner     string
	direction models.Direction
	content   string
}

var demoConversations = []seedMessage{
	{"0x71c7656ec7ab88b098defb751b7401b5f6d8976f", models.DirectionUser, "Hi, my withdrawal has been pending for an hour."},
	{"0x71c7656ec7ab88b098defb751b7401b5f6d8976f", models.DirectionOperator, "Thanks for reaching out, let me check the transaction."},
	{"0x2546bcd3c84621e976d8185a91a922ae77ecec30", models.DirectionUser, "How do I change the address linked to my account?"},
}

func runSeed() int {
	dbURL := requireEnv("DATABASE_URL")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	pool, err := database.NewPostgresPool(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	messages := database.NewMessageRepository(pool)

	fmt.Println("creating messages...")
	owners := map[string]bool{}
	for _, s := range demoConversations {
		content := s.content
		if _, err := messages.Append(ctx, s.owner, s.direction, &content, nil); err != nil {
			fmt.Fprintf(os.Stderr, "error: creating message: %v\n", err)
			return 1
		}
		owners[s.owner] = true
	}

	fmt.Println()
	fmt.Println("seed complete:")
	fmt.Printf("  conversations: %d\n", len(owners))
	fmt.Printf("  messages:      %d\n", len(demoConversations))
	return 0
}

// --- token ---

func runToken(subject string) int {
	secret := requireEnv("JWT_SECRET")

	id := models.Identity{Address: subject, Role: models.RoleUser}
	if subject == "--operator" {
		id = models.Identity{Role: models.RoleOperator}
	}

	token, err := auth.NewTokenService(secret).GenerateAccessToken(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: issuing token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

// --- health ---

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")
	url := serverURL + "/health"

	fmt.Printf("checking %s ...\n", url)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status: %d\n", resp.StatusCode)
	if len(body) > 0 {
		fmt.Printf("body:   %s\n", string(body))
	}

	if resp.StatusCode == http.StatusOK {
		fmt.Println("server is healthy")
		return 0
	}
	fmt.Fprintln(os.Stderr, "server returned non-200 status")
	return 1
}

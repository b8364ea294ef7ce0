package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"praxis-backend/internal/config"
	"praxis-backend/internal/database"
	"praxis-backend/internal/llm"
)

func main() {
	root := &cobra.Command{
		Use:           "praxisctl",
		Short:         "Administrative tool for the Praxis backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(), healthCmd(), cacheCmd(), completeCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			if err := database.RunMigrations(pool, dir); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	return cmd
}

func healthCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running server's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(strings.TrimRight(url, "/") + "/health")
			if err != nil {
				return fmt.Errorf("health request: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n%s\n", resp.Status, body)

			if resp.StatusCode != http.StatusOK {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "server base URL")
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage Redis state",
	}

	flush := &cobra.Command{
		Use:   "flush [pattern]",
		Short: "Delete keys matching a pattern (default: cached model catalog)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "llm:*"
			if len(args) == 1 {
				pattern = args[0]
			}

			cfg := config.Load()
			clients, err := database.NewRedisClients(cfg.RedisURL, cfg.RedisPoolSize)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer clients.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var deleted int64
			iter := clients.Queue.Scan(ctx, 0, pattern, 100).Iterator()
			for iter.Next(ctx) {
				if err := clients.Queue.Del(ctx, iter.Val()).Err(); err == nil {
					deleted++
				}
			}
			if err := iter.Err(); err != nil {
				return err
			}

			fmt.Printf("deleted %d keys matching %q\n", deleted, pattern)
			return nil
		},
	}

	cmd.AddCommand(flush)
	return cmd
}

func completeCmd() *cobra.Command {
	var model string
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "complete <prompt>",
		Short: "Run a one-shot completion against the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			client := llm.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.LLMModel, 1)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			text, usage, err := client.ChatCompletion(ctx, []llm.Message{
				{Role: "user", Content: args[0]},
			}, llm.Params{Model: model, MaxTokens: maxTokens})
			if err != nil {
				return err
			}

			fmt.Println(text)
			fmt.Fprintf(os.Stderr, "tokens: %d prompt, %d completion\n", usage.PromptTokens, usage.CompletionTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "override the configured model")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "cap the response length")
	return cmd
}

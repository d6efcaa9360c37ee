// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/wayfarer"
	"github.com/poiesic/wayfarer/ai"
	"github.com/poiesic/wayfarer/ingest"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "wayfarer",
		Usage: "Retrieval and ranking core for a travel assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Embed and store points of interest from a YAML file",
				Action: seedCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the YAML seed file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Concurrent embedding workers",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "POIs per embedding request",
						Value: 16,
					}),
			},
			{
				Name:      "query",
				Usage:     "Resolve a free-text query against the store",
				Action:    queryCommand,
				ArgsUsage: "<query text>",
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results to return",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category override, skipping classification",
					}),
			},
			{
				Name:   "stats",
				Usage:  "Show entity counts for the store",
				Action: statsCommand,
				Flags:  commonFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func openAssistant(c *cli.Context) (*wayfarer.Assistant, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	assistant, err := wayfarer.New(c.String("db"), wayfarer.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return assistant, nil
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	entities, err := loadSeedFile(c.String("file"))
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return fmt.Errorf("seed file contains no POIs")
	}

	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	pipeline, err := assistant.NewIngestPipeline(
		ingest.WithPoolSize(c.Int("pool-size")),
		ingest.WithBatchSize(c.Int("batch-size")))
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Release()

	seeded, err := pipeline.Seed(ctx, entities...)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Seeded %d POIs into %s\n", len(seeded), c.String("db"))
	return nil
}

func queryCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	intent := assistant.Classify(query)
	fmt.Fprintf(os.Stderr, "Category: %q  Primary only: %v\n", intent.Category, intent.PrimaryOnly)

	results, err := assistant.Resolve(context.Background(), query, c.Int("limit"), c.String("category"))
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%2d. %-30s %-12s %-10s %.4f\n",
			i+1, r.Entity.Name, r.Entity.Category, r.Entity.Attraction.Label(), r.Score)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	assistant, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	entities, err := assistant.Repository().All(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read entities: %w", err)
	}

	byCategory := map[string]int{}
	for _, e := range entities {
		byCategory[e.Category]++
	}

	fmt.Printf("Entities: %d\n", len(entities))
	for category, count := range byCategory {
		fmt.Printf("  %-12s %d\n", category, count)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

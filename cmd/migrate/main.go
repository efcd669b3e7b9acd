// Copyright 2026 The Terrier Authors
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

// Command migrate applies the embedded schema to the database named by its
// first argument, or by DATABASE_URL when no argument is given.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/store"
)

func main() {
	logger.InitLogger(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      "text",
		ServiceName: "terrier-migrate",
	})

	url := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	if url == "" {
		slog.Error("no database url: pass one as an argument or set DATABASE_URL")
		os.Exit(2)
	}

	if err := run(url); err != nil {
		slog.Error("migration failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.Open(ctx, store.Config{URL: url, MaxConns: 1})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("migration successful", logger.String("backend", db.Backend))
	return nil
}

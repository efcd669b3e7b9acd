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

// Command clean-db empties a development postgres database.
//
// By default it truncates every terrier table. With -drop it drops them so
// the next migrate starts from scratch. It refuses to run without -yes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/terrier-hq/terrier/internal/observability/logger"
)

// Reverse dependency order
var tables = []string{"user_hackathon_roles", "hackathons", "users"}

func main() {
	drop := flag.Bool("drop", false, "drop tables instead of truncating them")
	yes := flag.Bool("yes", false, "confirm the data loss")
	flag.Parse()

	logger.InitLogger(logger.Config{Format: "text", ServiceName: "terrier-clean-db"})

	url := os.Getenv("DATABASE_URL")
	if flag.NArg() > 0 {
		url = flag.Arg(0)
	}
	if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
		slog.Error("a postgres:// url is required (argument or DATABASE_URL)")
		os.Exit(2)
	}
	if !*yes {
		slog.Error("refusing to clean the database without -yes")
		os.Exit(2)
	}

	if err := run(url, *drop); err != nil {
		slog.Error("clean failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(url string, drop bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	stmt := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " CASCADE"
	if drop {
		stmt = "DROP TABLE IF EXISTS " + strings.Join(tables, ", ") + " CASCADE"
	}
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return err
	}

	slog.Info("database cleaned", logger.String("tables", strings.Join(tables, ",")), slog.Bool("dropped", drop))
	return nil
}

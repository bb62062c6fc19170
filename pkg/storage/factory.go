// Copyright 2026 Bindu Authors
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

package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/getbindu/bindu-go/pkg/config"
)

// Open builds the storage backend selected by the settings. agentDID scopes
// the postgres schema.
func Open(cfg config.StorageSettings, agentDID string) (Storage, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return NewMemoryStorage(), nil

	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return NewSQLStorage(db, "postgres", agentDID)

	case config.StorageSQLite:
		dsn := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// sqlite rejects concurrent writers on separate connections.
		db.SetMaxOpenConns(1)
		return NewSQLStorage(db, "sqlite", agentDID)

	case config.StorageMySQL:
		dsn := strings.TrimPrefix(cfg.DatabaseURL, "mysql://")
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		return NewSQLStorage(db, "mysql", agentDID)

	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

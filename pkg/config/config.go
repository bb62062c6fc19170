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

// Package config loads runtime settings for a bindu agent from the
// environment. An optional .env / .env.local file is read first; real
// environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend selectors.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMySQL    = "mysql"
)

// Scheduler backend selectors.
const (
	SchedulerMemory = "memory"
	SchedulerRedis  = "redis"
)

// Auth provider selectors.
const (
	AuthProviderHydra = "hydra"
	AuthProviderJWKS  = "jwks"
)

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Host string
	Port int
}

// GRPCSettings configures the optional gRPC surface.
type GRPCSettings struct {
	Enabled    bool
	Host       string
	Port       int
	MaxWorkers int
	TLSEnabled bool
	TLSCert    string
	TLSKey     string
}

// StorageSettings selects and configures the storage backend.
type StorageSettings struct {
	Type        string
	DatabaseURL string
}

// SchedulerSettings selects and configures the scheduler backend.
type SchedulerSettings struct {
	Type     string
	RedisURL string
}

// AuthSettings configures bearer-token validation.
type AuthSettings struct {
	Enabled      bool
	Provider     string
	HydraAdmin   string
	HydraPublic  string
	JWKSURL      string
	Issuer       string
	Audience     string
	TokenTimeout time.Duration
	VerifyTLS    bool
}

// TelemetrySettings configures the optional OTLP trace exporter.
type TelemetrySettings struct {
	Enabled  bool
	Endpoint string
}

// Settings is the full runtime configuration of an agent.
type Settings struct {
	LogLevel  string
	Server    ServerSettings
	GRPC      GRPCSettings
	Storage   StorageSettings
	Scheduler SchedulerSettings
	Auth      AuthSettings
	Telemetry TelemetrySettings
}

// LoadEnvFiles reads .env.local and .env if present. Missing files are not an
// error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load builds Settings from the environment.
func Load() (*Settings, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	s := &Settings{
		LogLevel: getString("LOG_LEVEL", "info"),
		Server: ServerSettings{
			Host: getString("HOST", "0.0.0.0"),
			Port: getInt("PORT", 3773),
		},
		GRPC: GRPCSettings{
			Enabled:    getBool("GRPC_ENABLED", false),
			Host:       getString("GRPC_HOST", "0.0.0.0"),
			Port:       getInt("GRPC_PORT", 50051),
			MaxWorkers: getInt("GRPC_MAX_WORKERS", 10),
			TLSEnabled: getBool("GRPC_TLS_ENABLED", false),
			TLSCert:    getString("GRPC_TLS_CERT", ""),
			TLSKey:     getString("GRPC_TLS_KEY", ""),
		},
		Storage: StorageSettings{
			Type:        getString("STORAGE_TYPE", StorageMemory),
			DatabaseURL: getString("DATABASE_URL", ""),
		},
		Scheduler: SchedulerSettings{
			Type:     getString("SCHEDULER_TYPE", SchedulerMemory),
			RedisURL: getString("REDIS_URL", ""),
		},
		Auth: AuthSettings{
			Enabled:      getBool("AUTH_ENABLED", false),
			Provider:     getString("AUTH_PROVIDER", AuthProviderHydra),
			HydraAdmin:   getString("HYDRA_ADMIN_URL", ""),
			HydraPublic:  getString("HYDRA_PUBLIC_URL", ""),
			JWKSURL:      getString("AUTH_JWKS_URL", ""),
			Issuer:       getString("AUTH_ISSUER", ""),
			Audience:     getString("AUTH_AUDIENCE", ""),
			TokenTimeout: getDuration("AUTH_TOKEN_TIMEOUT", 5*time.Minute),
			VerifyTLS:    getBool("AUTH_VERIFY_TLS", true),
		},
		Telemetry: TelemetrySettings{
			Enabled:  getBool("TELEMETRY_ENABLED", false),
			Endpoint: getString("OLTP_ENDPOINT", ""),
		},
	}

	return s, s.Validate()
}

// Validate rejects inconsistent settings early, before any component starts.
func (s *Settings) Validate() error {
	switch s.Storage.Type {
	case StorageMemory:
	case StoragePostgres, StorageSQLite, StorageMySQL:
		if s.Storage.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_TYPE=%s requires DATABASE_URL", s.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE: %q", s.Storage.Type)
	}

	switch s.Scheduler.Type {
	case SchedulerMemory:
	case SchedulerRedis:
		if s.Scheduler.RedisURL == "" {
			return fmt.Errorf("SCHEDULER_TYPE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown SCHEDULER_TYPE: %q", s.Scheduler.Type)
	}

	if s.Auth.Enabled {
		switch s.Auth.Provider {
		case AuthProviderHydra:
			if s.Auth.HydraAdmin == "" {
				return fmt.Errorf("AUTH_PROVIDER=hydra requires HYDRA_ADMIN_URL")
			}
		case AuthProviderJWKS:
			if s.Auth.JWKSURL == "" {
				return fmt.Errorf("AUTH_PROVIDER=jwks requires AUTH_JWKS_URL")
			}
		default:
			return fmt.Errorf("unknown AUTH_PROVIDER: %q", s.Auth.Provider)
		}
	}

	if s.GRPC.TLSEnabled && (s.GRPC.TLSCert == "" || s.GRPC.TLSKey == "") {
		return fmt.Errorf("GRPC_TLS_ENABLED requires GRPC_TLS_CERT and GRPC_TLS_KEY")
	}

	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

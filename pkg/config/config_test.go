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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", s.Server.Host)
	assert.Equal(t, 3773, s.Server.Port)
	assert.Equal(t, StorageMemory, s.Storage.Type)
	assert.Equal(t, SchedulerMemory, s.Scheduler.Type)
	assert.False(t, s.Auth.Enabled)
	assert.False(t, s.GRPC.Enabled)
	assert.Equal(t, 5*time.Minute, s.Auth.TokenTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/bindu")
	t.Setenv("SCHEDULER_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_TOKEN_TIMEOUT", "120")
	t.Setenv("GRPC_ENABLED", "true")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, s.Server.Port)
	assert.Equal(t, StoragePostgres, s.Storage.Type)
	assert.Equal(t, SchedulerRedis, s.Scheduler.Type)
	assert.Equal(t, 120*time.Second, s.Auth.TokenTimeout)
	assert.True(t, s.GRPC.Enabled)
}

func TestValidateRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "cassandra")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateAuthProviders(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_PROVIDER", "jwks")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWKS_URL")

	t.Setenv("AUTH_JWKS_URL", "https://auth.example.com/.well-known/jwks.json")
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthProviderJWKS, s.Auth.Provider)
}

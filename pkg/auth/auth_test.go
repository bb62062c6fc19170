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

package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	calls     atomic.Int32
	principal *Principal
	err       error
}

func (s *stubValidator) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.principal, nil
}

func TestMiddlewareMissingToken(t *testing.T) {
	stub := &stubValidator{principal: &Principal{ClientID: "client-1"}}
	handler := Middleware(stub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Missing authorization token", body["error"])
	assert.Zero(t, stub.calls.Load())
}

func TestMiddlewareInvalidToken(t *testing.T) {
	stub := &stubValidator{err: errors.New("nope")}
	handler := Middleware(stub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid authorization token", body["error"])
}

func TestMiddlewareValidTokenAttachesPrincipal(t *testing.T) {
	stub := &stubValidator{principal: &Principal{ClientID: "client-1", IsM2M: true}}

	var seen *Principal
	handler := Middleware(stub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "client-1", seen.ClientID)
	assert.True(t, seen.IsM2M)
}

func TestMiddlewarePublicPathsSkipAuth(t *testing.T) {
	stub := &stubValidator{err: errors.New("should not be called")}
	handler := Middleware(stub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for path := range PublicPaths {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Zero(t, stub.calls.Load())
}

func TestCachingValidatorMemoizes(t *testing.T) {
	stub := &stubValidator{principal: &Principal{
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	cached := NewCachingValidator(stub, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cached.ValidateToken(ctx, "token-a")
		require.NoError(t, err)
		assert.Equal(t, "client-1", p.ClientID)
	}
	assert.Equal(t, int32(1), stub.calls.Load())

	// A different token misses the cache.
	_, err := cached.ValidateToken(ctx, "token-b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestCachingValidatorTTLBoundedByExpiry(t *testing.T) {
	stub := &stubValidator{principal: &Principal{
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(-time.Minute), // already expired upstream
	}}
	cached := NewCachingValidator(stub, 5*time.Minute)
	ctx := context.Background()

	_, err := cached.ValidateToken(ctx, "token-a")
	require.NoError(t, err)
	_, err = cached.ValidateToken(ctx, "token-a")
	require.NoError(t, err)

	// Negative remaining lifetime means nothing was cached.
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestCachingValidatorBoundsEntries(t *testing.T) {
	stub := &stubValidator{principal: &Principal{
		ClientID:  "client-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	cached := NewCachingValidator(stub, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < maxCacheEntries+50; i++ {
		_, err := cached.ValidateToken(ctx, fmt.Sprintf("token-%d", i))
		require.NoError(t, err)
	}

	cached.mu.Lock()
	size := len(cached.entries)
	cached.mu.Unlock()
	assert.LessOrEqual(t, size, maxCacheEntries)
}

func TestCachingValidatorDoesNotCacheFailures(t *testing.T) {
	stub := &stubValidator{err: ErrInvalidToken}
	cached := NewCachingValidator(stub, 5*time.Minute)
	ctx := context.Background()

	_, err := cached.ValidateToken(ctx, "token-a")
	require.Error(t, err)
	_, err = cached.ValidateToken(ctx, "token-a")
	require.Error(t, err)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestIntrospectionValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		active := r.Form.Get("token") == "good-token"
		json.NewEncoder(w).Encode(map[string]any{
			"active":     active,
			"client_id":  "m2m-client",
			"scope":      "tasks:write",
			"exp":        time.Now().Add(time.Hour).Unix(),
			"grant_type": "client_credentials",
		})
	}))
	defer srv.Close()

	v := NewIntrospectionValidator(srv.URL, "", true)
	ctx := context.Background()

	p, err := v.ValidateToken(ctx, "good-token")
	require.NoError(t, err)
	assert.Equal(t, "m2m-client", p.ClientID)
	assert.Equal(t, "tasks:write", p.Scope)
	assert.True(t, p.IsM2M)
	assert.True(t, p.ExpiresAt.After(time.Now()))

	_, err = v.ValidateToken(ctx, "revoked-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDIDSignatureRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	did := "did:bindu:alice:agent:1"
	body := `{"jsonrpc":"2.0","method":"message/send"}`
	ts := time.Now().Unix()

	sig, err := SignRequest(priv, did, body, ts)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(HeaderDID, did)
	req.Header.Set(HeaderDIDSignature, sig)
	req.Header.Set(HeaderDIDTimestamp, strconv.FormatInt(ts, 10))

	resolve := func(d string) (ed25519.PublicKey, error) {
		if d != did {
			return nil, fmt.Errorf("unknown did")
		}
		return pub, nil
	}
	assert.NoError(t, VerifyRequest(req, []byte(body), resolve))

	// Tampered body fails.
	err = VerifyRequest(req, []byte(body+" "), resolve)
	require.Error(t, err)

	// Stale timestamp fails.
	oldTS := time.Now().Add(-10 * time.Minute).Unix()
	oldSig, err := SignRequest(priv, did, body, oldTS)
	require.NoError(t, err)
	req.Header.Set(HeaderDIDSignature, oldSig)
	req.Header.Set(HeaderDIDTimestamp, strconv.FormatInt(oldTS, 10))
	err = VerifyRequest(req, []byte(body), resolve)
	require.Error(t, err)
}

func TestDIDMiddlewareVerifiesSignedRequests(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	did := "did:bindu:alice:agent:1"
	body := `{"jsonrpc":"2.0","method":"message/send"}`
	resolve := func(d string) (ed25519.PublicKey, error) {
		if d != did {
			return nil, fmt.Errorf("unknown did")
		}
		return pub, nil
	}

	var seenBody string
	handler := DIDMiddleware(resolve)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenBody = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	sign := func(req *http.Request) {
		ts := time.Now().Unix()
		sig, err := SignRequest(priv, did, body, ts)
		require.NoError(t, err)
		req.Header.Set(HeaderDID, did)
		req.Header.Set(HeaderDIDSignature, sig)
		req.Header.Set(HeaderDIDTimestamp, strconv.FormatInt(ts, 10))
	}

	// Signed request passes and the handler still reads the full body.
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	sign(req)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, seenBody)

	// A signature over different bytes is rejected before the handler runs.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body+" "))
	sign(req)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unsigned requests still pass; the check is additive.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDIDSignatureAbsentHeadersPass(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, VerifyRequest(req, nil, nil))
}

func TestDIDSignaturePartialHeadersFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderDID, "did:bindu:x:y:z")
	assert.Error(t, VerifyRequest(req, nil, nil))
}

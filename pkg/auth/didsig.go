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
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/getbindu/bindu-go/pkg/a2a"
)

// DID signature headers. When all three are present on a request, the
// signature is verified in addition to the bearer token; the check is
// additive and never replaces token auth.
const (
	HeaderDID          = "X-DID"
	HeaderDIDSignature = "X-DID-Signature"
	HeaderDIDTimestamp = "X-DID-Timestamp"
)

// maxSignatureSkew is how far a signed timestamp may drift from the server
// clock.
const maxSignatureSkew = 300 * time.Second

// signedPayload is the canonical structure both signer and verifier marshal.
// encoding/json emits map keys sorted, which fixes the byte layout.
type signedPayload struct {
	Body      string `json:"body"`
	DID       string `json:"did"`
	Timestamp int64  `json:"timestamp"`
}

// KeyResolver maps a caller DID to its ed25519 verification key.
type KeyResolver func(did string) (ed25519.PublicKey, error)

// DIDMiddleware returns a chi-compatible middleware verifying the DID
// signature headers of mutating requests. The body is buffered and handed
// back to the next handler untouched. A nil resolver disables the check.
func DIDMiddleware(resolve KeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolve == nil || r.Method != http.MethodPost || PublicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeUnauthorized(w, "failed to read request body")
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := VerifyRequest(r, body, resolve); err != nil {
				writeUnauthorized(w, a2a.AsError(err).Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignRequest produces the signature header value for a request body, for
// agent-to-agent calls made by this process.
func SignRequest(key ed25519.PrivateKey, did, body string, timestamp int64) (string, error) {
	payload, err := canonicalPayload(did, body, timestamp)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(key, payload)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyRequest checks the DID signature headers of a request against the
// raw body. Requests without any DID headers pass; partial headers or a bad
// signature fail with unauthenticated.
func VerifyRequest(r *http.Request, body []byte, resolveKey KeyResolver) error {
	did := r.Header.Get(HeaderDID)
	sigB64 := r.Header.Get(HeaderDIDSignature)
	tsStr := r.Header.Get(HeaderDIDTimestamp)

	if did == "" && sigB64 == "" && tsStr == "" {
		return nil
	}
	if did == "" || sigB64 == "" || tsStr == "" {
		return a2a.Errorf(a2a.KindUnauthenticated, "incomplete DID signature headers")
	}

	timestamp, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return a2a.Errorf(a2a.KindUnauthenticated, "invalid DID signature timestamp")
	}
	if skew := time.Since(time.Unix(timestamp, 0)); skew > maxSignatureSkew || skew < -maxSignatureSkew {
		return a2a.Errorf(a2a.KindUnauthenticated, "DID signature timestamp outside allowed window")
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return a2a.Errorf(a2a.KindUnauthenticated, "malformed DID signature")
	}

	key, err := resolveKey(did)
	if err != nil {
		return a2a.Errorf(a2a.KindUnauthenticated, "unknown DID: %s", did)
	}

	payload, err := canonicalPayload(did, string(body), timestamp)
	if err != nil {
		return err
	}
	if !ed25519.Verify(key, payload, sig) {
		return a2a.Errorf(a2a.KindUnauthenticated, "DID signature verification failed")
	}
	return nil
}

func canonicalPayload(did, body string, timestamp int64) ([]byte, error) {
	data, err := json.Marshal(signedPayload{Body: body, DID: did, Timestamp: timestamp})
	if err != nil {
		return nil, fmt.Errorf("failed to build signature payload: %w", err)
	}
	return data, nil
}

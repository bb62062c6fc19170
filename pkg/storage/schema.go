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
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Postgres identifier limit.
const maxSchemaNameLen = 63

// SchemaName derives the postgres schema name for an agent from its DID.
// The derivation is deterministic so every process of the same agent lands
// in the same schema:
//
//	lowercase; every non-alphanumeric rune becomes '_'; a leading digit gets
//	a "schema_" prefix; names over 63 bytes are truncated to 54 bytes plus
//	'_' plus the first 8 hex chars of the sha256 of the full sanitized name.
func SchemaName(did string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(did) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()

	if name == "" {
		name = "schema_default"
	} else if name[0] >= '0' && name[0] <= '9' {
		name = "schema_" + name
	}

	if len(name) > maxSchemaNameLen {
		sum := sha256.Sum256([]byte(name))
		name = name[:54] + "_" + hex.EncodeToString(sum[:])[:8]
	}
	return name
}

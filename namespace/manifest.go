// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package namespace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Methods advertised in the manifest are the RPC operations the master's
// transport exposes, per spec.md §6's "Wire (manifest file)".
var Methods = []string{"get", "put", "del", "scanOpen", "scanPull", "scanClose", "createNamespace"}

// manifestDoc is the JSON document written to manifest.json.
type manifestDoc struct {
	Version    uint64   `json:"version"`
	Namespaces []string `json:"namespaces"`
	Methods    []string `json:"methods"`
}

// manifestFile owns the single master-side writer of manifest.json. The
// rename from manifest.json.tmp to manifest.json is what makes a publish
// atomic; readers (workers) always see either the old or the new
// manifest, never a partial one.
type manifestFile struct {
	path    string
	tmpPath string

	mu      sync.Mutex
	version uint64
}

func newManifestFile(metadataPath string) *manifestFile {
	return &manifestFile{
		path:    filepath.Join(metadataPath, "manifest.json"),
		tmpPath: filepath.Join(metadataPath, "manifest.json.tmp"),
	}
}

func (m *manifestFile) publish(doc manifestDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.version++
	doc.Version = m.version
	doc.Methods = Methods
	sort.Strings(doc.Namespaces)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("namespace: marshal manifest: %w", err)
	}

	if err := os.WriteFile(m.tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("namespace: write manifest staging file: %w", err)
	}
	if err := os.Rename(m.tmpPath, m.path); err != nil {
		return fmt.Errorf("namespace: rename manifest into place: %w", err)
	}
	return nil
}

// LoadManifest reads and parses the manifest at path, the way a worker
// does on construction and on reconnect. A parse failure is returned as a
// wrapped error; on a worker's Acquire path the façade maps it to
// InternalError and logs it at error level. Nothing here or in its callers
// logs it at fatal or aborts the process.
func LoadManifest(metadataPath string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(metadataPath, "manifest.json"))
	if err != nil {
		return Manifest{}, err
	}
	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("namespace: parse manifest: %w", err)
	}
	return Manifest{Version: doc.Version, Namespaces: doc.Namespaces, Methods: doc.Methods}, nil
}

// Manifest is the parsed, client-facing view of manifest.json.
type Manifest struct {
	Version    uint64
	Namespaces []string
	Methods    []string
}

// Has reports whether name is one of the namespaces this manifest knows
// about.
func (m Manifest) Has(name string) bool {
	for _, n := range m.Namespaces {
		if n == name {
			return true
		}
	}
	return false
}

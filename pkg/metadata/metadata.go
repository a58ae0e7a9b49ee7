// Package metadata writes and verifies manifest sidecars for generated split blobs.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Suffix is appended to a blob path to form its manifest path.
const Suffix = ".manifest.yaml"

// Version is the manifest schema version.
const Version = "1"

// Manifest verification errors.
var (
	ErrNoManifest   = errors.New("no manifest found")
	ErrNoHashFound  = errors.New("no hash found in manifest")
	ErrHashMismatch = errors.New("hash mismatch")
)

// Manifest describes how a split blob was produced.
type Manifest struct {
	Version    string         `yaml:"version"`
	Split      string         `yaml:"split"`
	Format     string         `yaml:"format"`
	Records    int            `yaml:"records"`
	Seed       uint64         `yaml:"seed"`
	Tokenizer  string         `yaml:"tokenizer,omitempty"`
	Policy     map[string]any `yaml:"policy,omitempty"`
	Hash       string         `yaml:"hash"`
	LastModify time.Time      `yaml:"last_modify"`
}

// PathFor returns the manifest path for blob.
func PathFor(blob string) string {
	return blob + Suffix
}

// CalculateHash computes the SHA-256 hash of the file at path.
func CalculateHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sign hashes blob, stamps m with the hash and current time, and writes the sidecar.
func Sign(blob string, m Manifest) (Manifest, error) {
	hash, err := CalculateHash(blob)
	if err != nil {
		return Manifest{}, err
	}

	m.Version = Version
	m.Hash = hash
	m.LastModify = time.Now().UTC().Truncate(time.Second)

	data, err := yaml.Marshal(&m)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(PathFor(blob), data, 0644); err != nil {
		return Manifest{}, fmt.Errorf("failed to write manifest: %w", err)
	}

	return m, nil
}

// Read loads the manifest next to blob.
func Read(blob string) (*Manifest, error) {
	data, err := os.ReadFile(PathFor(blob))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, blob)
		}

		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}

// Verify checks that blob still matches the hash recorded in its manifest.
func Verify(blob string) (*Manifest, error) {
	m, err := Read(blob)
	if err != nil {
		return nil, err
	}

	if m.Hash == "" {
		return m, ErrNoHashFound
	}

	calculated, err := CalculateHash(blob)
	if err != nil {
		return m, err
	}

	if calculated != m.Hash {
		return m, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, m.Hash, calculated)
	}

	return m, nil
}

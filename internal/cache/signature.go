package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"buildpack/internal/paths"
)

const signatureVersion = 1

// Signature identifies the toolchain of the build that last saved the cache.
type Signature struct {
	Version        int       `json:"version"`
	Runtime        string    `json:"runtime"`
	Manager        string    `json:"manager"`
	ManagerVersion string    `json:"manager_version,omitempty"`
	SavedAt        time.Time `json:"saved_at"`
}

// Matches reports whether other was produced by the same toolchain.
func (s Signature) Matches(other Signature) bool {
	return s.Runtime == other.Runtime && s.Manager == other.Manager && s.ManagerVersion == other.ManagerVersion
}

// LoadSignature reads the cache signature, returning nil when none was saved.
func LoadSignature(l paths.Layout) (*Signature, error) {
	data, err := os.ReadFile(l.SignatureFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signature: %w", err)
	}

	var sig Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	return &sig, nil
}

// SaveSignature writes the signature atomically.
func SaveSignature(l paths.Layout, sig Signature) error {
	if err := os.MkdirAll(filepath.Dir(l.SignatureFile), 0o755); err != nil {
		return fmt.Errorf("ensure signature dir: %w", err)
	}
	if sig.Version == 0 {
		sig.Version = signatureVersion
	}
	if sig.SavedAt.IsZero() {
		sig.SavedAt = nowFunc().UTC()
	}

	data, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}

	tmp := l.SignatureFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp signature: %w", err)
	}
	if err := os.Rename(tmp, l.SignatureFile); err != nil {
		return fmt.Errorf("replace signature: %w", err)
	}
	return nil
}

var nowFunc = time.Now

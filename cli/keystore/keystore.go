// Package keystore provides secure storage for API keys.
package keystore

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key-value pair.
	Set(name, value string) error
	// Get retrieves a value by name. Returns error if not found.
	Get(name string) (string, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names.
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// MasterKeyEnv names the environment variable holding the keystore master key.
const MasterKeyEnv = "IMAGINE_MASTER_KEY"

// MasterKeySource supplies the secret the file encryption key is derived from.
type MasterKeySource interface {
	GetMasterKey() ([]byte, error)
}

// EnvMasterKeySource reads the master key from an environment variable.
type EnvMasterKeySource struct {
	Var string
}

// GetMasterKey implements MasterKeySource.
func (s EnvMasterKeySource) GetMasterKey() ([]byte, error) {
	name := s.Var
	if name == "" {
		name = MasterKeyEnv
	}
	value := os.Getenv(name)
	if value == "" {
		return nil, errors.New(name + " is not set")
	}
	return []byte(value), nil
}

// MachineKeySource derives a master key from the host name and user.
// The result is predictable to anyone with access to the machine.
type MachineKeySource struct{}

// GetMasterKey implements MasterKeySource.
func (MachineKeySource) GetMasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}

	hash := sha256.Sum256([]byte(hostname + ":" + username + ":imagine-keystore"))
	return hash[:], nil
}

// DefaultMasterKeySource returns the environment source when IMAGINE_MASTER_KEY
// is set, and the machine-derived source otherwise.
func DefaultMasterKeySource() MasterKeySource {
	if os.Getenv(MasterKeyEnv) != "" {
		return EnvMasterKeySource{Var: MasterKeyEnv}
	}
	return MachineKeySource{}
}

// DefaultKeystorePath returns the default keystore file path.
// - macOS/Linux: ~/.imagine/keys.enc
// - Windows: %USERPROFILE%\.imagine\keys.enc
func DefaultKeystorePath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "keys.enc"
	}

	return filepath.Join(homeDir, ".imagine", "keys.enc")
}

// NewKeystore creates a new keystore using file-based encrypted storage.
func NewKeystore() (Keystore, error) {
	return NewFileKeystoreWithSource(DefaultKeystorePath(), DefaultMasterKeySource())
}

// Package identity tests validate key generation and loading for the
// Identity abstraction. These tests ensure persistent key files can be
// created and re-loaded, and that file permissions match security
// expectations.
package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Hardhat's first default account.
const (
	hardhatKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestIdentityLifecycle(t *testing.T) {
	// Create temporary key file
	tmpFile, err := os.CreateTemp(t.TempDir(), "test_key_*.hex")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	// Test creating new identity
	identity1, created, err := LoadOrCreateIdentity(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	if !created {
		t.Error("empty key file should be treated as missing")
	}

	// Verify we can load the same identity
	identity2, created, err := LoadOrCreateIdentity(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load identity: %v", err)
	}
	if created {
		t.Error("existing key was regenerated")
	}

	if identity1.AddressHex() != identity2.AddressHex() {
		t.Errorf("Loaded identity differs from created one. Got %s, want %s",
			identity2.AddressHex(), identity1.AddressHex())
	}

	// Resolve loads the same file without creating anything
	identity3, err := Resolve("", tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to resolve identity: %v", err)
	}
	if identity3.Address() != identity1.Address() {
		t.Errorf("Resolve returned %s, want %s", identity3.AddressHex(), identity1.AddressHex())
	}
}

func TestFromHex(t *testing.T) {
	for _, key := range []string{hardhatKey, hardhatKey[2:], " " + hardhatKey + "\n"} {
		id, err := FromHex(key)
		if err != nil {
			t.Fatalf("FromHex(%q) failed: %v", key, err)
		}
		if id.AddressHex() != hardhatAddress {
			t.Errorf("address = %s, want %s", id.AddressHex(), hardhatAddress)
		}
	}

	if _, err := FromHex("0x1234"); err == nil {
		t.Error("short key should fail")
	}
}

func TestResolvePrefersHexKey(t *testing.T) {
	id, err := Resolve(hardhatKey, filepath.Join(t.TempDir(), "missing.hex"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if id.AddressHex() != hardhatAddress {
		t.Errorf("address = %s", id.AddressHex())
	}

	if _, err := Resolve("", ""); !errors.Is(err, ErrNoKey) {
		t.Errorf("expected ErrNoKey, got %v", err)
	}

	if _, err := Resolve("", filepath.Join(t.TempDir(), "missing.hex")); err == nil {
		t.Error("missing key file should fail")
	}
}

func TestGeneratedKeysAreDistinct(t *testing.T) {
	dir := t.TempDir()
	first, _, err := LoadOrCreateIdentity(filepath.Join(dir, "test_key.hex"))
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	second, _, err := LoadOrCreateIdentity(filepath.Join(dir, "other_key.hex"))
	if err != nil {
		t.Fatalf("Failed to create other identity: %v", err)
	}
	if first.Address() == second.Address() {
		t.Errorf("two generated keys share address %s", first.AddressHex())
	}
}

func TestPermissions(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "secure_test_key.hex")

	if _, _, err := LoadOrCreateIdentity(keyPath); err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("Failed to stat key file: %v", err)
	}

	// On Unix systems, check for 0600 permissions
	if info.Mode().Perm() != 0600 {
		t.Errorf("Key file has wrong permissions. Got %v, want %v",
			info.Mode().Perm(), 0600)
	}
}

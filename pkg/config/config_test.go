package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	if err := os.WriteFile(path, []byte("node:\n  id_hex: \"\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Discovery.K != 20 {
		t.Errorf("k = %d, want default 20", cfg.Discovery.K)
	}
	if cfg.Transport.Kind != "udp" {
		t.Errorf("transport kind = %q, want udp", cfg.Transport.Kind)
	}
}

func TestLoadConfigRejectsBadIDWidth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	os.WriteFile(path, []byte("node:\n  id_width: 64\n"), 0644)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected invalid id_width to be rejected")
	}
}

func TestLoadConfigRejectsQUICWithoutTLS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	os.WriteFile(path, []byte("transport:\n  kind: quic\n"), 0644)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected quic transport without tls cert/key to be rejected")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	if err := WriteConfigFile(Default(), path); err != nil {
		t.Fatalf("write default config: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

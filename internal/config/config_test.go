package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Errorf("expected Defaults() to be valid, got %v", err)
	}
}

func TestValidateRejectsUnknownMachine(t *testing.T) {
	cfg := Defaults()
	cfg.Machine = "nonexistent"
	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "not a registered example machine") {
		t.Errorf("expected an unknown-machine error, got %v", err)
	}
}

func TestValidateRejectsEmptyProperty(t *testing.T) {
	cfg := Defaults()
	cfg.Property = ""
	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "property must not be empty") {
		t.Errorf("expected an empty-property error, got %v", err)
	}
}

func TestValidateRejectsBadSchemaVersion(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"
	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "schema_version") {
		t.Errorf("expected a schema_version error, got %v", err)
	}
}

func TestValidateRejectsBadLogLevelAndFormat(t *testing.T) {
	cfg := Defaults()
	cfg.Observability.LogLevel = "verbose"
	cfg.Observability.LogFormat = "xml"
	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "log_format") {
		t.Errorf("expected both log_level and log_format errors collected, got %v", err)
	}
}

func TestValidateRejectsRuncacheEnabledWithEmptyPath(t *testing.T) {
	cfg := Defaults()
	cfg.Runcache.DBPath = ""
	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "db_path") {
		t.Errorf("expected a db_path error, got %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mckverify.yaml")
	contents := "schema_version: \"1\"\nmachine: divider\nproperty: \"AG![__panic == 0]\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected Load to succeed, got %v", err)
	}
	if cfg.Machine != "divider" {
		t.Errorf("expected machine overridden to divider, got %q", cfg.Machine)
	}
	if cfg.Property != "AG![__panic == 0]" {
		t.Errorf("expected property overridden, got %q", cfg.Property)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level to survive merging, got %q", cfg.Observability.LogLevel)
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected Load to fail on a missing file")
	}
}

func TestLoadFailsOnInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mckverify.yaml")
	contents := "schema_version: \"1\"\nmachine: nonexistent\nproperty: \"x\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected Load to fail validation for an unknown machine")
	}
}

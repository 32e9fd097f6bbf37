package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManager_Load_DefaultsWhenAbsent(t *testing.T) {
	mgr := NewManager(t.TempDir())

	cfg, migrated, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if migrated {
		t.Error("Load() migrated = true, want false when nothing exists")
	}
	if cfg.Trunk != "" {
		t.Errorf("Trunk = %q, want empty default", cfg.Trunk)
	}
	if cfg.Remote != "origin" {
		t.Errorf("Remote = %q, want origin", cfg.Remote)
	}
}

func TestManager_SaveAndLoad_RoundTrip(t *testing.T) {
	mgr := NewManager(t.TempDir())

	want := RepoConfig{Trunk: "main", Remote: "upstream", DefaultFreezeScope: "downstack_inclusive", RestackAutosquash: true}
	if err := mgr.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, migrated, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if migrated {
		t.Error("Load() migrated = true, want false for a native config.toml")
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestManager_Load_MigratesLegacyYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lattice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	legacy := "trunk: develop\nremote: origin\n"
	if err := os.WriteFile(filepath.Join(dir, legacyFileName), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := &Manager{dir: dir}
	cfg, migrated, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !migrated {
		t.Error("Load() migrated = false, want true when only legacy state.yaml exists")
	}
	if cfg.Trunk != "develop" {
		t.Errorf("Trunk = %q, want develop", cfg.Trunk)
	}

	if _, err := os.Stat(filepath.Join(dir, fileName)); !os.IsNotExist(err) {
		t.Errorf("expected Load() not to persist config.toml on its own, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, legacyFileName)); err != nil {
		t.Errorf("expected legacy state.yaml to remain: %v", err)
	}

	if err := mgr.Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName)); err != nil {
		t.Errorf("expected config.toml to exist after an explicit Save: %v", err)
	}
}

func TestManager_Load_RepositoriesMapSingleEntry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lattice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	legacy := "repositories:\n  myrepo:\n    remote: git@github.com:me/myrepo.git\n    trunk: main\n"
	if err := os.WriteFile(filepath.Join(dir, legacyFileName), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := &Manager{dir: dir}
	cfg, migrated, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !migrated {
		t.Fatal("expected migration from the repositories map form")
	}
	if cfg.Trunk != "main" {
		t.Errorf("Trunk = %q, want main", cfg.Trunk)
	}
	if cfg.Remote != "git@github.com:me/myrepo.git" {
		t.Errorf("Remote = %q, want the repository's remote URL", cfg.Remote)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadPlatformOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "id: fotocasa\nextra_domains: [fotocasa.com]\n")
	writeFile(t, dir, "a.yaml", "id: idealista\nimage_domains:\n  - cdn.example\nimage_referer: https://ref/\n")
	writeFile(t, dir, "notes.txt", "ignored")

	got, err := LoadPlatformOverrides(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(got))
	}
	if got[0].ID != "idealista" || got[0].ImageReferer != "https://ref/" || got[0].ImageDomains[0] != "cdn.example" {
		t.Fatalf("unexpected first override %+v", got[0])
	}
	if got[1].ID != "fotocasa" || got[1].ExtraDomains[0] != "fotocasa.com" {
		t.Fatalf("unexpected second override %+v", got[1])
	}
}

func TestLoadPlatformOverridesMissingDir(t *testing.T) {
	got, err := LoadPlatformOverrides(filepath.Join(t.TempDir(), "nope"))
	if err != nil || got != nil {
		t.Fatalf("expected no overrides and no error, got %v, %v", got, err)
	}
}

func TestLoadPlatformOverridesRequiresID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.yaml", "extra_domains: [a.com]\n")
	if _, err := LoadPlatformOverrides(dir); err == nil {
		t.Fatal("expected error for override without id")
	}
}

type fakeRegistry struct {
	calls []string
	fail  string
}

func (f *fakeRegistry) Extend(id string, domains, imageDomains []string, referer string) error {
	if id == f.fail {
		return errors.New("unknown platform")
	}
	f.calls = append(f.calls, id)
	return nil
}

func TestApplyPlatformOverrides(t *testing.T) {
	r := &fakeRegistry{fail: "ghost"}
	if err := ApplyPlatformOverrides(r, []PlatformOverride{{ID: "idealista"}, {ID: "areizaga"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("expected 2 calls, got %v", r.calls)
	}
	if err := ApplyPlatformOverrides(r, []PlatformOverride{{ID: "ghost"}}); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLATFORMS_DIR", t.TempDir())
	t.Setenv("DB_PATH", "")
	t.Setenv("MEDIA_INTERVAL", "bogus")
	t.Setenv("MEDIA_BATCH", "5")
	t.Setenv("S3_BUCKET", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "hogar.db" || cfg.Scheduler.Batch != 5 || cfg.Scheduler.Interval.Minutes() != 2 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.S3.Enabled() {
		t.Fatal("expected S3 disabled without bucket")
	}
}

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"murmur/internal/config"
	"murmur/internal/services"
)

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func isolatedOptions(t *testing.T) config.ResolveOptions {
	t.Helper()
	return config.ResolveOptions{HomeDir: t.TempDir(), WorkDir: t.TempDir()}
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.Default()
	if cfg.Language != "en-US" {
		t.Fatalf("unexpected default language %q", cfg.Language)
	}
	if cfg.Format != "txt" {
		t.Fatalf("unexpected default format %q", cfg.Format)
	}
	if cfg.OnDevice || cfg.Verbose || cfg.NoColor {
		t.Fatalf("expected boolean flags to default off, got %+v", cfg)
	}
	if !cfg.ShowProgress || !cfg.History {
		t.Fatalf("expected progress and history on by default, got %+v", cfg)
	}
	if cfg.Engine != config.EngineWhisperX || cfg.LogFormat != "console" {
		t.Fatalf("unexpected engine/log defaults %+v", cfg)
	}
}

func TestResolveWithoutFilesUsesDefaults(t *testing.T) {
	cfg, err := config.Resolve(isolatedOptions(t))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "txt" || cfg.Language != "en-US" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Sources) != 0 || len(cfg.Skipped) != 0 {
		t.Fatalf("expected no sources, got %v / %v", cfg.Sources, cfg.Skipped)
	}
}

func TestResolveLayerPrecedence(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.yaml"), "format: srt\nlanguage: es-ES\n")
	opts.Overrides = config.Settings{Language: strPtr("en-US")}

	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "srt" {
		t.Fatalf("expected project format srt, got %q", cfg.Format)
	}
	if cfg.Language != "en-US" {
		t.Fatalf("expected override language en-US, got %q", cfg.Language)
	}
}

func TestResolveProjectOverridesHome(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.HomeDir, ".config", "murmur", "config.toml"), "format = \"vtt\"\nverbose = true\n")
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.json"), `{"format": "json"}`)

	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "json" {
		t.Fatalf("expected project layer to win, got %q", cfg.Format)
	}
	if !cfg.Verbose {
		t.Fatal("expected verbose from home layer to survive")
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected two sources, got %v", cfg.Sources)
	}
}

func TestResolvePrefersYAMLOverOtherExtensions(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.json"), `{"format": "json"}`)
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.yml"), "format: vtt\n")

	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "vtt" {
		t.Fatalf("expected yml layer, got %q", cfg.Format)
	}
}

func TestResolveSkipsUnparsableDiscoveredFile(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.yaml"), "format: [unterminated\n")

	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "txt" {
		t.Fatalf("expected defaults after skipped layer, got %q", cfg.Format)
	}
	if len(cfg.Skipped) != 1 || !strings.Contains(cfg.Skipped[0], ".murmur.yaml") {
		t.Fatalf("expected skipped entry, got %v", cfg.Skipped)
	}
}

func TestResolveCustomPathReplacesFileLayers(t *testing.T) {
	opts := isolatedOptions(t)
	writeFile(t, filepath.Join(opts.WorkDir, ".murmur.yaml"), "format: srt\nverbose: true\n")
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, custom, "language: fr-FR\n")
	opts.CustomPath = custom

	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Format != "txt" || cfg.Verbose {
		t.Fatalf("expected project layer to be ignored, got %+v", cfg)
	}
	if cfg.Language != "fr-FR" {
		t.Fatalf("expected custom language, got %q", cfg.Language)
	}
}

func TestResolveCustomPathMustExistAndParse(t *testing.T) {
	opts := isolatedOptions(t)
	opts.CustomPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := config.Resolve(opts); !errors.Is(err, services.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for missing custom file, got %v", err)
	}

	broken := filepath.Join(t.TempDir(), "broken.toml")
	writeFile(t, broken, "format = \n")
	opts.CustomPath = broken
	if _, err := config.Resolve(opts); !errors.Is(err, services.ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for unparsable custom file, got %v", err)
	}
}

func TestResolveCanonicalizesLanguage(t *testing.T) {
	opts := isolatedOptions(t)
	opts.Overrides = config.Settings{Language: strPtr("en-us")}
	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Language != "en-US" {
		t.Fatalf("expected canonical tag, got %q", cfg.Language)
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name      string
		overrides config.Settings
		want      string
	}{
		{"format", config.Settings{Format: strPtr("docx")}, "format"},
		{"language", config.Settings{Language: strPtr("not a tag!")}, "language"},
		{"engine", config.Settings{Engine: strPtr("cloud")}, "engine"},
		{"exec command", config.Settings{Engine: strPtr("exec")}, "engineCommand"},
		{"log format", config.Settings{LogFormat: strPtr("xml")}, "logFormat"},
		{"output parent", config.Settings{OutputDir: strPtr("/nonexistent-murmur/a/b")}, "outputDir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := isolatedOptions(t)
			opts.Overrides = tt.overrides
			_, err := config.Resolve(opts)
			if !errors.Is(err, services.ErrConfigInvalid) {
				t.Fatalf("expected ErrConfigInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error %q", tt.want, err.Error())
			}
		})
	}
}

func TestOutputDirMayNotExistYet(t *testing.T) {
	opts := isolatedOptions(t)
	target := filepath.Join(t.TempDir(), "transcripts")
	opts.Overrides = config.Settings{OutputDir: strPtr(target)}
	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.OutputDir != target {
		t.Fatalf("expected %q, got %q", target, cfg.OutputDir)
	}
	if got := cfg.OutputDirFor("/media/a.wav"); got != target {
		t.Fatalf("OutputDirFor = %q", got)
	}

	cfg.OutputDir = ""
	if got := cfg.OutputDirFor("/media/a.wav"); got != "/media" {
		t.Fatalf("expected input directory, got %q", got)
	}
}

func TestMergeIsRightBiased(t *testing.T) {
	a := config.Settings{Format: strPtr("txt"), Verbose: boolPtr(true)}
	b := config.Settings{Format: strPtr("srt")}

	merged := a.Merge(b)
	if *merged.Format != "srt" {
		t.Fatalf("expected right layer to win, got %q", *merged.Format)
	}
	if merged.Verbose == nil || !*merged.Verbose {
		t.Fatal("expected unset right field to keep left value")
	}
	if *a.Format != "txt" {
		t.Fatal("merge mutated its receiver")
	}
}

func TestMergeIdentityAndIdempotence(t *testing.T) {
	a := config.Settings{Language: strPtr("de-DE"), OnDevice: boolPtr(true)}
	empty := config.Settings{}

	left := empty.Merge(a)
	right := a.Merge(empty)
	again := a.Merge(a)
	for name, got := range map[string]config.Settings{"empty∘a": left, "a∘empty": right, "a∘a": again} {
		if got.Language == nil || *got.Language != "de-DE" || got.OnDevice == nil || !*got.OnDevice {
			t.Fatalf("%s: unexpected merge result %+v", name, got)
		}
		if got.Format != nil {
			t.Fatalf("%s: unexpected format %v", name, *got.Format)
		}
	}
}

func TestMergeIsAssociative(t *testing.T) {
	a := config.Settings{Format: strPtr("txt"), Language: strPtr("en-US")}
	b := config.Settings{Format: strPtr("srt"), Verbose: boolPtr(true)}
	c := config.Settings{Language: strPtr("ja-JP")}

	lhs := a.Merge(b).Merge(c)
	rhs := a.Merge(b.Merge(c))
	if *lhs.Format != *rhs.Format || *lhs.Language != *rhs.Language || *lhs.Verbose != *rhs.Verbose {
		t.Fatalf("merge not associative: %+v vs %+v", lhs, rhs)
	}
}

func TestDecodeSettingsFormats(t *testing.T) {
	inputs := map[string]string{
		".yaml": "format: vtt\nonDevice: true\nunknownKey: 1\n",
		".toml": "format = \"vtt\"\nonDevice = true\nunknownKey = 1\n",
		".json": `{"format":"vtt","onDevice":true,"unknownKey":1}`,
	}
	for ext, body := range inputs {
		settings, err := config.DecodeSettings(ext, []byte(body))
		if err != nil {
			t.Fatalf("%s: decode failed: %v", ext, err)
		}
		if settings.Format == nil || *settings.Format != "vtt" || settings.OnDevice == nil || !*settings.OnDevice {
			t.Fatalf("%s: unexpected settings %+v", ext, settings)
		}
		if settings.Language != nil {
			t.Fatalf("%s: expected absent language to stay nil", ext)
		}
	}
	if _, err := config.DecodeSettings(".ini", []byte("format=txt")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestCreateSampleResolves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	opts := isolatedOptions(t)
	opts.CustomPath = path
	cfg, err := config.Resolve(opts)
	if err != nil {
		t.Fatalf("sample config did not resolve: %v", err)
	}
	if cfg.Format != "txt" || cfg.Engine != config.EngineWhisperX {
		t.Fatalf("unexpected sample config %+v", cfg)
	}
}

func TestEncodeYAMLRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Format = "srt"
	data, err := cfg.EncodeYAML()
	if err != nil {
		t.Fatalf("EncodeYAML returned error: %v", err)
	}
	if strings.Contains(string(data), "outputDir") {
		t.Fatalf("expected empty outputDir to be omitted: %s", data)
	}
	settings, err := config.DecodeSettings(".yaml", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if settings.Format == nil || *settings.Format != "srt" {
		t.Fatalf("unexpected decoded settings %+v", settings)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/transcripts")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "transcripts") {
		t.Fatalf("unexpected expansion %q", got)
	}
}

package language

import (
	"slices"
	"testing"
)

func TestBase(t *testing.T) {
	cases := map[string]string{
		"en":         "en",
		"EN":         "en",
		"en-US":      "en",
		"pt-BR":      "pt",
		"eng":        "en",
		"spa":        "es",
		"deu":        "de",
		"ger":        "de",
		"fre":        "fr",
		"chi":        "zh",
		"dut":        "nl",
		"jpn":        "ja",
		"english":    "en",
		"Portuguese": "pt",
		"GERMAN":     "de",
		"":           "",
		"   ":        "",
		"??":         "",
	}
	for input, want := range cases {
		if got := Base(input); got != want {
			t.Errorf("Base(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	cases := map[string]string{
		"en-us":   "en-US",
		"EN-GB":   "en-GB",
		" fr ":    "fr",
		"zh-hant": "zh-Hant",
	}
	for input, want := range cases {
		got, err := Canonicalize(input)
		if err != nil {
			t.Fatalf("Canonicalize(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := Canonicalize("not a tag!"); err == nil {
		t.Error("expected error for malformed tag")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"en":      "English",
		"en-GB":   "British English",
		"ger":     "German",
		"french":  "French",
		"":        "Unknown",
		"??":      "??",
		"bad tag": "BAD TAG",
	}
	for input, want := range cases {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, tag := range []string{"en-US", "es-ES", "de", "ja-JP", "ukrainian"} {
		if !Supported(tag) {
			t.Errorf("expected %q to be supported", tag)
		}
	}
	for _, tag := range []string{"", "xx", "sw-KE"} {
		if Supported(tag) {
			t.Errorf("expected %q to be unsupported", tag)
		}
	}
}

func TestSupportedBasesSorted(t *testing.T) {
	bases := SupportedBases()
	if len(bases) != len(localModels) {
		t.Fatalf("got %d bases, want %d", len(bases), len(localModels))
	}
	if !slices.IsSorted(bases) {
		t.Fatalf("bases not sorted: %v", bases)
	}
	if !slices.Contains(bases, "en") {
		t.Fatalf("expected en in %v", bases)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		available []string
		want      bool
	}{
		{"exact", "en-US", []string{"en-US"}, true},
		{"case insensitive", "en-us", []string{"en-US"}, true},
		{"bare language covers region", "en-GB", []string{"fr", "en"}, true},
		{"other region", "en-GB", []string{"en-US"}, false},
		{"different language", "de-DE", []string{"en", "fr-FR"}, false},
		{"malformed entries skipped", "fr-FR", []string{"??", "fr-FR"}, true},
		{"malformed tag", "??", []string{"en"}, false},
		{"empty list", "en-US", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.tag, tt.available); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.tag, tt.available, got, tt.want)
			}
		})
	}
}

func TestFromStreamTags(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"lowercase key", map[string]string{"language": "ENG"}, "eng"},
		{"uppercase key", map[string]string{"LANGUAGE": "fre"}, "fre"},
		{"ietf key", map[string]string{"language_ietf": "pt-BR"}, "pt-br"},
		{"nul padded", map[string]string{"lang": "spa\x00\x00"}, "spa"},
		{"first key wins", map[string]string{"language": "deu", "lang": "eng"}, "deu"},
		{"blank", map[string]string{"language": "  "}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromStreamTags(tt.tags); got != tt.want {
				t.Errorf("FromStreamTags(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

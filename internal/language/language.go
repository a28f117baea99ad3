package language

import (
	"slices"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// localModels maps each base language the bundled WhisperX models cover to
// its English name.
var localModels = map[string]string{
	"ar": "Arabic",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fi": "Finnish",
	"fr": "French",
	"hi": "Hindi",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"sv": "Swedish",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// aliases covers ISO 639-2/B codes and English names that BCP-47 parsing
// does not accept.
var aliases = map[string]string{
	"chi": "zh",
	"cze": "cs",
	"dut": "nl",
	"fre": "fr",
	"ger": "de",
}

func init() {
	for base, name := range localModels {
		aliases[strings.ToLower(name)] = base
	}
}

func parse(value string) (xlanguage.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return xlanguage.Und, false
	}
	if base, ok := aliases[strings.ToLower(value)]; ok {
		value = base
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return xlanguage.Und, false
	}
	return tag, true
}

// Canonicalize parses a BCP-47 tag and returns its canonical spelling
// ("en_us" and "EN-us" both become "en-US").
func Canonicalize(tag string) (string, error) {
	parsed, err := xlanguage.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// Base returns the two-letter ISO 639-1 language of a tag, ISO 639-2 code,
// or English language name ("pt-BR", "por", and "portuguese" all give "pt").
// It returns "" when the input names no language with a two-letter code.
func Base(value string) string {
	tag, ok := parse(value)
	if !ok {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	if code := base.String(); len(code) == 2 {
		return code
	}
	return ""
}

// Supported reports whether the local models cover the tag's base language.
func Supported(tag string) bool {
	_, ok := localModels[Base(tag)]
	return ok
}

// SupportedBases returns the base languages the local models cover, sorted.
func SupportedBases() []string {
	out := make([]string, 0, len(localModels))
	for base := range localModels {
		out = append(out, base)
	}
	slices.Sort(out)
	return out
}

// DisplayName returns an English name for a tag or code, with the region
// when one is present ("en-GB" is "British English"). Empty input gives
// "Unknown"; unparseable input is returned uppercased.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Unknown"
	}
	tag, ok := parse(trimmed)
	if !ok {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	if name, ok := localModels[Base(trimmed)]; ok {
		return name
	}
	return strings.ToUpper(trimmed)
}

// Match reports whether tag is covered by any entry in available. Entries may
// be full tags ("en-US") or bare languages ("en"); a bare entry covers every
// region of that language.
func Match(tag string, available []string) bool {
	want, err := xlanguage.Parse(strings.TrimSpace(tag))
	if err != nil {
		return false
	}
	wantBase, _ := want.Base()
	for _, candidate := range available {
		have, err := xlanguage.Parse(strings.TrimSpace(candidate))
		if err != nil {
			continue
		}
		if have == want {
			return true
		}
		if haveBase, _ := have.Base(); haveBase == wantBase && have == xlanguage.Make(haveBase.String()) {
			return true
		}
	}
	return false
}

// FromStreamTags returns the lowercased language recorded in container
// stream metadata, or "" when none of the usual keys is set.
func FromStreamTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		value := strings.TrimSpace(strings.ReplaceAll(tags[key], "\x00", ""))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

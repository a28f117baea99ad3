package config

const (
	defaultLanguage     = "en-US"
	defaultFormat       = "txt"
	defaultOnDevice     = false
	defaultVerbose      = false
	defaultShowProgress = true
	defaultNoColor      = false
	defaultEngine       = EngineWhisperX
	defaultModel        = "large-v3"
	defaultLogFormat    = "console"
	defaultHistory      = true
)

// Engine identifiers accepted by the engine setting.
const (
	EngineWhisperX = "whisperx"
	EngineExec     = "exec"
)

// SupportedFormats lists the output format identifiers in display order.
var SupportedFormats = []string{"txt", "json", "srt", "vtt"}

// DefaultSettings returns the lowest-priority layer. Every field except the
// optional output directory and engine command is populated.
func DefaultSettings() Settings {
	return Settings{
		Language:     ptr(defaultLanguage),
		Format:       ptr(defaultFormat),
		OnDevice:     ptr(defaultOnDevice),
		Verbose:      ptr(defaultVerbose),
		ShowProgress: ptr(defaultShowProgress),
		NoColor:      ptr(defaultNoColor),
		Engine:       ptr(defaultEngine),
		Model:        ptr(defaultModel),
		LogFormat:    ptr(defaultLogFormat),
		History:      ptr(defaultHistory),
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return DefaultSettings().effective()
}

func ptr[T any](v T) *T {
	return &v
}

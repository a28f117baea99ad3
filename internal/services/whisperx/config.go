package whisperx

import "strconv"

// Launcher and package index defaults.
const (
	UVXCommand   = "uvx"
	DefaultModel = "large-v3"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"
)

// Voice activity detection backends.
const (
	VADMethodSilero   = "silero"
	VADMethodPyannote = "pyannote"
)

// Config selects how WhisperX is launched. The zero value runs DefaultModel
// on the CPU with silero VAD through uvx from PATH.
type Config struct {
	Model       string
	CUDAEnabled bool
	// VADMethod is VADMethodSilero or VADMethodPyannote.
	VADMethod string
	// HFToken is passed only with pyannote, which downloads gated models.
	HFToken string
	Binary  string
}

// decoding holds the fixed transcription parameters.
var decoding = struct {
	batchSize, chunkSize, beamSize, bestOf int
	vadOnset, vadOffset                    float64
	temperature, patience                  float64
}{
	batchSize: 4, chunkSize: 15, beamSize: 10, bestOf: 10,
	vadOnset: 0.08, vadOffset: 0.07,
	temperature: 0, patience: 1,
}

func (c Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

func (c Config) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return UVXCommand
}

func (c Config) vadMethod() string {
	if c.VADMethod != "" {
		return c.VADMethod
	}
	return VADMethodSilero
}

// launcherArgs are the uvx flags that precede the "whisperx" tool name.
func (c Config) launcherArgs() []string {
	if c.CUDAEnabled {
		return []string{"--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL}
	}
	return []string{"--index-url", PypiIndexURL}
}

// deviceArgs pins the compute device. CPU runs use float32.
func (c Config) deviceArgs() []string {
	if c.CUDAEnabled {
		return []string{"--device", "cuda"}
	}
	return []string{"--device", "cpu", "--compute_type", "float32"}
}

func decodingArgs() []string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		"--batch_size", strconv.Itoa(decoding.batchSize),
		"--chunk_size", strconv.Itoa(decoding.chunkSize),
		"--vad_onset", num(decoding.vadOnset),
		"--vad_offset", num(decoding.vadOffset),
		"--beam_size", strconv.Itoa(decoding.beamSize),
		"--best_of", strconv.Itoa(decoding.bestOf),
		"--temperature", num(decoding.temperature),
		"--patience", num(decoding.patience),
		"--segment_resolution", "sentence",
	}
}

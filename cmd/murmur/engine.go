package main

import (
	"fmt"

	"murmur/internal/config"
	"murmur/internal/recognition"
	"murmur/internal/services/execstt"
	"murmur/internal/services/whisperx"
)

func buildEngine(cfg *config.Config) (recognition.Engine, error) {
	switch cfg.Engine {
	case config.EngineWhisperX:
		return whisperx.New(whisperx.Config{Model: cfg.Model}), nil
	case config.EngineExec:
		return execstt.New(cfg.EngineCommand)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

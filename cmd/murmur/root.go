package main

import (
	"github.com/spf13/cobra"

	"murmur/internal/config"
)

// globalFlags holds the persistent flags shared by every command. Only flags
// the user actually set become configuration overrides.
type globalFlags struct {
	config        string
	language      string
	format        string
	onDevice      bool
	outputDir     string
	verbose       bool
	noProgress    bool
	noColor       bool
	noHistory     bool
	yes           bool
	engine        string
	engineCommand string
	model         string
	logFormat     string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:   "murmur [flags] FILE...",
		Short: "Transcribe audio and video files",
		Long: "murmur transcribes each FILE in order and writes a transcript next to it\n" +
			"(or into --output-dir). Video files have their audio extracted first.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.overrides = flags.overrides(cmd)
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runTranscribe(cmd, ctx, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path (replaces discovered files)")
	pf.StringVarP(&flags.language, "language", "l", "", "Recognition language (BCP-47 tag, e.g. en-US)")
	pf.StringVarP(&flags.format, "format", "f", "", "Output format: txt, json, srt, or vtt")
	pf.BoolVar(&flags.onDevice, "on-device", false, "Prefer on-device recognition")
	pf.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory for transcripts (default: next to each input)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug logs and full error details")
	pf.BoolVar(&flags.noProgress, "no-progress", false, "Hide the progress display")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable coloured output")
	pf.BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history database")
	pf.BoolVarP(&flags.yes, "yes", "y", false, "Grant speech recognition permission without prompting")
	pf.StringVar(&flags.engine, "engine", "", "Recognition engine: whisperx or exec")
	pf.StringVar(&flags.engineCommand, "engine-command", "", "Command line for the exec engine")
	pf.StringVar(&flags.model, "model", "", "WhisperX model name")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(newTranscribeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newConsentCommand())

	return rootCmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe FILE...",
		Short: "Transcribe files (same as passing files to murmur)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, ctx, args)
		},
	}
}

// overrides converts explicitly set flags into the highest-priority
// configuration layer.
func (f *globalFlags) overrides(cmd *cobra.Command) config.Settings {
	var s config.Settings
	changed := func(name string) bool {
		flag := cmd.Flag(name)
		return flag != nil && flag.Changed
	}
	if changed("language") {
		s.Language = &f.language
	}
	if changed("format") {
		s.Format = &f.format
	}
	if changed("on-device") {
		s.OnDevice = &f.onDevice
	}
	if changed("output-dir") {
		s.OutputDir = &f.outputDir
	}
	if changed("verbose") {
		s.Verbose = &f.verbose
	}
	if changed("no-progress") {
		show := !f.noProgress
		s.ShowProgress = &show
	}
	if changed("no-color") {
		s.NoColor = &f.noColor
	}
	if changed("no-history") {
		history := !f.noHistory
		s.History = &history
	}
	if changed("engine") {
		s.Engine = &f.engine
	}
	if changed("engine-command") {
		s.EngineCommand = &f.engineCommand
	}
	if changed("model") {
		s.Model = &f.model
	}
	if changed("log-format") {
		s.LogFormat = &f.logFormat
	}
	return s
}

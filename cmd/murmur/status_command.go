package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"murmur/internal/deps"
	"murmur/internal/permission"
	"murmur/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, engine availability, and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := ctx.colorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				lines = append(lines, renderStatusLine(status.Name, dependencyKind(status), dependencyMessage(status), colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Recognition", colorize)...)
			if engine, err := buildEngine(cfg); err != nil {
				lines = append(lines, renderStatusLine("Speech recognition", statusError, errorText(err, cfg.Verbose), colorize))
			} else {
				lines = append(lines, renderResultLine(preflight.CheckEngine(cmd.Context(), engine, cfg.Language, cfg.OnDevice), colorize))
			}
			authorizer := permission.NewLocalAuthorizer(permission.NewConsentStore(""), false)
			lines = append(lines, renderResultLine(preflight.CheckPermission(cmd.Context(), authorizer), colorize))

			results := preflight.RunAll(cmd.Context(), cfg)
			if len(results) > 0 {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Directories", colorize)...)
				for _, result := range results {
					lines = append(lines, renderResultLine(result, colorize))
				}
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines, renderStatusLine("Language", statusInfo, cfg.Language, colorize))
			lines = append(lines, renderStatusLine("Format", statusInfo, cfg.Format, colorize))
			lines = append(lines, renderStatusLine("On-device", statusInfo, yesNo(cfg.OnDevice), colorize))
			lines = append(lines, renderStatusLine("History", statusInfo, yesNo(cfg.History), colorize))
			for _, skipped := range cfg.Skipped {
				lines = append(lines, renderStatusLine("Skipped file", statusWarn, skipped, colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func renderResultLine(result preflight.Result, colorize bool) string {
	kind := statusError
	if result.Passed {
		kind = statusOK
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

func dependencyKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyMessage(status deps.Status) string {
	if status.Available {
		return status.Path
	}
	if status.Detail != "" {
		return status.Detail
	}
	return status.Description
}

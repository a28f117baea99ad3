package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"murmur/internal/config"
	"murmur/internal/logging"
)

type commandContext struct {
	flags     *globalFlags
	overrides config.Settings

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.flags != nil {
			path = strings.TrimSpace(c.flags.config)
		}
		cfg, err := config.Resolve(config.ResolveOptions{
			CustomPath: path,
			Overrides:  c.overrides,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerFor builds the process logger once. Unreadable discovered config
// files are reported here because resolution itself has no logger.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg := c.configValue()
		logger, err := logging.NewFromConfig(cfg, shouldColorize(cmd.ErrOrStderr()))
		if err != nil {
			logger = logging.NewNop()
		}
		if cfg != nil {
			for _, skipped := range cfg.Skipped {
				logging.WarnWithContext(logger, "configuration file skipped", "config_skipped",
					logging.String("detail", skipped),
					logging.String(logging.FieldErrorHint, "fix or remove the file; defaults and other layers were used"),
				)
			}
		}
		c.logger = logger
	})
	return c.logger
}

// colorize reports whether output to w should carry ANSI colours.
func (c *commandContext) colorize(w io.Writer) bool {
	if cfg := c.configValue(); cfg != nil && cfg.NoColor {
		return false
	}
	return shouldColorize(w)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

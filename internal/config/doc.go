// Package config resolves murmur configuration from layered sources.
//
// Layers are merged field by field with later layers winning: built-in
// defaults, the user file (~/.config/murmur/config.*), the project file
// (.murmur.* in the working directory), and finally command-line overrides.
// An explicit --config path replaces both file layers. Files may be YAML,
// TOML, or JSON; auto-discovered files that fail to parse are reported in
// Config.Skipped and otherwise ignored.
//
// Always obtain settings through this package so downstream code receives a
// canonical language tag, an absolute output directory, and clear validation
// errors.
package config

package auth

import (
	"errors"
	"strings"
)

// Config selects the strategy a client authenticates with.
type Config struct {
	// PluginPath is the path of the plugin module. Empty disables
	// authentication.
	PluginPath string

	// Params is the "key:value,..." parameter string passed to the plugin.
	Params string

	// ParamMap is passed to the plugin's map entrypoint. It takes
	// precedence over the string form and may not be combined with Params.
	ParamMap ParamMap
}

// Enabled reports whether a plugin is configured.
func (c *Config) Enabled() bool {
	return strings.TrimSpace(c.PluginPath) != ""
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.Params != "" && c.ParamMap != nil {
		return errors.New("params and param map are mutually exclusive")
	}
	if !c.Enabled() && (c.Params != "" || len(c.ParamMap) > 0) {
		return errors.New("plugin parameters given without a plugin path")
	}
	return nil
}

package app

import (
	"fmt"
	"strings"

	"github.com/FernandoVinha/TheManager/pkg/logger"
)

// ConfigureLogging installs the global logger from the server and tracing
// sections: level, encoder, and a service field matching the trace resource.
func (c *Config) ConfigureLogging() error {
	var opts []logger.Option
	switch format := strings.ToLower(strings.TrimSpace(c.Server.LogFormat)); format {
	case "", "json":
	case "console":
		opts = append(opts, logger.WithConsole())
	default:
		return fmt.Errorf("config: unknown server.log_format %q", format)
	}
	if name := strings.TrimSpace(c.Tracing.ServiceName); name != "" {
		opts = append(opts, logger.WithFields(map[string]any{"service": name}))
	}
	return logger.Init(strings.TrimSpace(c.Server.LogLevel), opts...)
}

package logger

// Config holds configuration for the logger.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level" default:"info"`
	// Format is the log encoding: "console" for terminals, "json" for machines.
	Format string `mapstructure:"format" default:"console"`
	// File is an optional audit log file that mirrors all output.
	File string `mapstructure:"file" default:"reconciler_audit.log"`
}

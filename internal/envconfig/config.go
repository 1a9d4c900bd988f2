// Package envconfig reads process configuration from DAGRAD_* environment variables.
//
// Every getter reads the environment on each call, so tests can change a
// variable with t.Setenv and observe the new value immediately.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel returns the log level (DAGRAD_DEBUG).
// "1"/"true" selects debug, larger integers select more verbose levels.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("DAGRAD_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Seed returns the RNG seed for new devices (DAGRAD_SEED). 0 means time-based.
var Seed = Uint64("DAGRAD_SEED", 0)

// MemoryLimit returns the per-device memory limit in bytes (DAGRAD_MEMORY_LIMIT).
// 0 means unlimited. Suffixes K, M and G multiply by 1024, 1024² and 1024³.
func MemoryLimit() int {
	s := strings.ToUpper(Var("DAGRAD_MEMORY_LIMIT"))
	if s == "" {
		return 0
	}
	mult := 1
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1<<10, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1<<20, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1<<30, strings.TrimSuffix(s, "G")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		slog.Warn("invalid environment variable, using default", "key", "DAGRAD_MEMORY_LIMIT", "value", s, "default", 0)
		return 0
	}
	return n * mult
}

// Var returns an environment variable stripped of leading and trailing quotes or spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Uint64 returns a getter for an unsigned integer with a default value.
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// EnvVar describes one environment variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every variable with its current value and description.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"DAGRAD_DEBUG":        {"DAGRAD_DEBUG", LogLevel(), "Show additional debug information (e.g. DAGRAD_DEBUG=1)"},
		"DAGRAD_SEED":         {"DAGRAD_SEED", Seed(), "Seed of the device random number generator (0 = time based)"},
		"DAGRAD_MEMORY_LIMIT": {"DAGRAD_MEMORY_LIMIT", MemoryLimit(), "Maximum bytes held by one device, e.g. 512M (0 = unlimited)"},
	}
}

// Values returns every variable formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Package config loads the CLI's settings the way the teacher's
// internal/config package does: a viper instance layering defaults,
// discovered config files, and environment variables, with flags applied
// last by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved set of settings ttmctl needs.
type Config struct {
	DatabasePath string
	LogPath      string
	LogLevel     string
}

// Initialize mirrors the teacher's config.Initialize: it walks up from the
// working directory looking for a project-local config file, then falls
// back to a user config directory, binds environment variables under the
// TTM_ prefix, and seeds defaults before the caller's flags override
// anything.
func Initialize() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("ttm")
	v.SetConfigType("yaml")

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; ; {
			v.AddConfigPath(dir)
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "ttm"))
		v.AddConfigPath(filepath.Join(home, ".ttm"))
	}

	v.SetEnvPrefix("TTM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", "events.db")
	v.SetDefault("log_path", "")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// DATABASE_PATH (unprefixed) is the contract spec.md §6 names directly;
	// honor it even though TTM_DATABASE_PATH is the general convention.
	if p := os.Getenv("DATABASE_PATH"); p != "" {
		v.Set("database_path", p)
	}

	return v, nil
}

// Resolve extracts a Config from a populated viper instance.
func Resolve(v *viper.Viper) Config {
	return Config{
		DatabasePath: v.GetString("database_path"),
		LogPath:      v.GetString("log_path"),
		LogLevel:     v.GetString("log_level"),
	}
}

// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package shifter implements the specifics of the NERSC Shifter container
// runtime, including the parsing of its site configuration. Shifter performs
// site-wide binds (siteFs) and environment injection (siteEnv) on its own,
// which the backend must account for when translating a launch configuration.
package shifter

import (
	"os"
	"strings"

	"github.com/gvallee/go_util/pkg/util"
	"github.com/pkg/errors"
)

const (
	// DefaultConfigPath is where a Shifter site configuration usually lives
	DefaultConfigPath = "/etc/shifter/udiRoot.conf"

	// ConfigPathEnvVar overrides the site configuration location
	ConfigPathEnvVar = "SHIFTER_SYSCONFIG"

	modulePrefix = "module_"
)

// Config is the organized content of a Shifter site configuration
type Config struct {
	// Directives is the set of top-level key/value directives
	Directives map[string]string

	// Modules regroups the per-module directives, indexed by module then key
	Modules map[string]map[string]string
}

// ParseConfigFile reads and organizes a Shifter site configuration
func ParseConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read Shifter configuration %s", path)
	}
	return OrganizeConfig(ParseConfig(string(data))), nil
}

// LocateConfig returns the path of the site configuration, honoring the
// override environment variable. An empty string means no configuration
func LocateConfig() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	if util.FileExists(DefaultConfigPath) {
		return DefaultConfigPath
	}
	return ""
}

// ParseConfig parses the key=value directives of a Shifter configuration.
// Values can span multiple lines with backslash continuations; lines that are
// not comments nor directives are dropped
func ParseConfig(content string) map[string]string {
	directives := make(map[string]string)

	var key string
	var value string
	continuation := false

	for _, line := range strings.Split(content, "\n") {
		if continuation {
			value += strings.TrimSpace(line)
			continuation = strings.HasSuffix(value, "\\")
			value = strings.TrimSuffix(value, "\\")
			if !continuation {
				directives[key] = value
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		idx := strings.Index(trimmed, "=")
		if idx < 0 {
			continue
		}

		key = strings.TrimSpace(trimmed[:idx])
		value = strings.TrimSpace(trimmed[idx+1:])
		if key == "" || strings.Contains(key, " ") {
			continue
		}

		continuation = strings.HasSuffix(value, "\\")
		value = strings.TrimSuffix(value, "\\")
		if !continuation {
			directives[key] = value
		}
	}

	return directives
}

// OrganizeConfig regroups module_<name>_<key> directives under their module
func OrganizeConfig(directives map[string]string) *Config {
	cfg := &Config{
		Directives: make(map[string]string),
		Modules:    make(map[string]map[string]string),
	}

	for key, value := range directives {
		if !strings.HasPrefix(key, modulePrefix) {
			cfg.Directives[key] = value
			continue
		}

		tokens := strings.SplitN(strings.TrimPrefix(key, modulePrefix), "_", 2)
		if len(tokens) != 2 {
			cfg.Directives[key] = value
			continue
		}

		module := tokens[0]
		if cfg.Modules[module] == nil {
			cfg.Modules[module] = make(map[string]string)
		}
		cfg.Modules[module][tokens[1]] = value
	}

	return cfg
}

// SiteBinds returns the site-wide binds Shifter performs on its own, as
// host:dest pairs. Binding those again from the launch configuration would
// make the run fail
func (c *Config) SiteBinds() []string {
	raw := c.Directives["siteFs"]
	if raw == "" {
		return nil
	}

	var binds []string
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			binds = append(binds, entry)
		}
	}
	return binds
}

// SiteEnv returns the environment assignments Shifter injects on its own
func (c *Config) SiteEnv() []string {
	raw := c.Directives["siteEnv"]
	if raw == "" {
		return nil
	}

	var env []string
	for _, entry := range strings.Fields(raw) {
		if strings.Contains(entry, "=") {
			env = append(env, entry)
		}
	}
	return env
}

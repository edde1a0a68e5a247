// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sys

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Config represents the system configuration for the current run
type Config struct {
	// Prefix is the user prefix where profiles and compiled binaries live
	Prefix string

	// ProfileDir is the directory where profiles are persisted
	ProfileDir string

	// BinaryDir is the directory where compiled sample binaries are kept
	BinaryDir string

	// ScratchDir is the path to a scratch directory on the system (most HPC systems have one)
	ScratchDir string

	// CurPath is the path to the current directory
	CurPath string

	// DryRun requests commands to be displayed instead of executed
	DryRun bool
}

// DefaultPrefix returns the per-user prefix of the tool
func DefaultPrefix() string {
	return filepath.Join(xdg.DataHome, "mpicl")
}

// Load populates a system configuration with defaults. The prefix can be
// overridden through the tool configuration before calling Init
func Load() (Config, error) {
	var cfg Config
	var err error

	cfg.Prefix = DefaultPrefix()
	cfg.CurPath, err = os.Getwd()
	if err != nil {
		return cfg, err
	}
	cfg.ScratchDir = os.TempDir()

	return cfg, nil
}

// Init derives the layout of the prefix and creates the directories that do
// not exist yet
func (c *Config) Init() error {
	c.ProfileDir = filepath.Join(c.Prefix, "profiles")
	c.BinaryDir = filepath.Join(c.Prefix, "compiled_binaries")

	for _, dir := range []string{c.Prefix, c.ProfileDir, c.BinaryDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

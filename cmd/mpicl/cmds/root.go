// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package cmds implements the command line interface of the tool. Each
// command lives in its own file and registers itself against the root
// command in its init function.
package cmds

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	debugMode bool
	dryRun    bool

	sysCfg sys.Config
)

var rootCmd = &cobra.Command{
	Use:   "mpicl",
	Short: "Run MPI applications inside containers",
	Long: `mpicl launches MPI applications inside containers using profiles that
describe which host libraries and files the containerized ranks need.

A typical session probes the local MPI installation once to build a profile,
then wraps the usual launcher command line:

  mpicl init
  mpicl launch --image /images/app.sif -- mpirun -np 4 ./app`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			log.SetLevel(log.DebugLevel)
		}

		var err error
		sysCfg, err = sys.Load()
		if err != nil {
			return err
		}
		if prefix := viper.GetString("prefix"); prefix != "" {
			sysCfg.Prefix = prefix
		}
		if scratch := viper.GetString("scratch_dir"); scratch != "" {
			sysCfg.ScratchDir = scratch
		}
		sysCfg.DryRun = dryRun

		return sysCfg.Init()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug level log")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "display the commands instead of running them")
}

// initConfig reads an optional configuration file and the MPICL_* environment
func initConfig() {
	viper.SetConfigName("mpicl")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "mpicl"))
	}
	viper.AddConfigPath("/etc/mpicl")

	viper.SetEnvPrefix("mpicl")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("* using configuration file %s", viper.ConfigFileUsed())
	}
}

// store returns the profile store of the current prefix
func store() (*profile.Store, error) {
	return profile.NewStore(sysCfg.ProfileDir)
}

// Execute runs the command line interface
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

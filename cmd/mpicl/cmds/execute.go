// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmds

import (
	"os"

	"github.com/gvallee/go_mpi_container/pkg/launch"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/spf13/cobra"
)

var executeFlags struct {
	backend       string
	image         string
	source        string
	libraries     []string
	files         []string
	wi4mpi        string
	wi4mpiOptions string
}

// executeCmd is the inner command the rewritten launcher command line runs on
// every rank. It is not meant to be typed by hand, the launch command
// generates it
var executeCmd = &cobra.Command{
	Use:    "execute [flags] -- <program>",
	Short:  "Run a program inside a container (internal)",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := profile.Profile{
			Backend:       executeFlags.backend,
			Image:         executeFlags.image,
			Source:        executeFlags.source,
			Libraries:     executeFlags.libraries,
			Files:         executeFlags.files,
			WI4MPI:        executeFlags.wi4mpi,
			WI4MPIOptions: executeFlags.wi4mpiOptions,
		}

		rc, err := launch.Execute(&p, args, debugMode, &sysCfg)
		if err != nil {
			return err
		}
		if rc != 0 {
			os.Exit(rc)
		}
		return nil
	},
}

func init() {
	executeCmd.Flags().StringVar(&executeFlags.backend, "backend", "", "container backend to use")
	executeCmd.Flags().StringVar(&executeFlags.image, "image", "", "container image to run in")
	executeCmd.Flags().StringVar(&executeFlags.source, "source", "", "script to source in the container before the program")
	executeCmd.Flags().StringSliceVar(&executeFlags.libraries, "libraries", nil, "host libraries to import in the container")
	executeCmd.Flags().StringSliceVar(&executeFlags.files, "files", nil, "host files to make available in the container")
	executeCmd.Flags().StringVar(&executeFlags.wi4mpi, "wi4mpi", "", "path to a WI4MPI installation to use")
	executeCmd.Flags().StringVar(&executeFlags.wi4mpiOptions, "wi4mpi-options", "", "options to pass to WI4MPI")

	rootCmd.AddCommand(executeCmd)
}

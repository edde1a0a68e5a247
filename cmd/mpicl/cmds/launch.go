// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmds

import (
	"os"

	"github.com/gvallee/go_mpi_container/pkg/launch"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var launchFlags struct {
	profileName   string
	backend       string
	image         string
	source        string
	libraries     []string
	files         []string
	wi4mpi        string
	wi4mpiOptions string

	batch       bool
	np          int
	nodes       int
	partition   string
	nonBlocking bool
}

var launchCmd = &cobra.Command{
	Use:   "launch [flags] -- <launcher command>",
	Short: "Launch an MPI command inside a container",
	Long: `launch rewrites a launcher command line (mpirun, srun, jsrun, aprun or
prun) so every rank starts inside the container described by the selected
profile, then runs it.

Command line flags override the corresponding profile fields, lists are
appended. With --batch the rewritten command goes through the job manager
instead of running interactively.`,
	Example: `  mpicl launch -- mpirun -np 4 ./app
  mpicl launch --profile openmpi-4.1.2 --image /images/app.sif -- srun -n 16 ./app
  mpicl launch --batch --np 32 --nodes 2 -- mpirun ./app`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := launchBaseProfile()
		if err != nil {
			return err
		}

		overrides := profile.Profile{
			Backend:       launchFlags.backend,
			Image:         launchFlags.image,
			Source:        launchFlags.source,
			Libraries:     launchFlags.libraries,
			Files:         launchFlags.files,
			WI4MPI:        launchFlags.wi4mpi,
			WI4MPIOptions: launchFlags.wi4mpiOptions,
		}

		resolved, err := launch.Resolve(*base, overrides)
		if err != nil {
			return err
		}

		req := launch.Request{
			Profile: resolved,
			Argv:    args,
			Batch:   launchFlags.batch,
			Debug:   debugMode,
		}
		req.Job.NP = launchFlags.np
		req.Job.NNodes = launchFlags.nodes
		req.Job.Partition = launchFlags.partition
		req.Job.NonBlocking = launchFlags.nonBlocking

		rc, err := launch.Run(&req, &sysCfg)
		if err != nil {
			return err
		}
		if rc != 0 {
			os.Exit(rc)
		}
		return nil
	},
}

// launchBaseProfile returns the stored profile a launch starts from: the one
// named on the command line, otherwise the current selection, otherwise an
// unnamed empty profile that the overrides must complete
func launchBaseProfile() (*profile.Profile, error) {
	s, err := store()
	if err != nil {
		return nil, err
	}

	if launchFlags.profileName != "" {
		p, err := s.Get(launchFlags.profileName)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := s.Selected()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read the selected profile")
	}
	if p == nil {
		p = &profile.Profile{}
	}
	return p, nil
}

func init() {
	launchCmd.Flags().StringVar(&launchFlags.profileName, "profile", "", "name of the profile to launch with (default: the selected profile)")
	launchCmd.Flags().StringVar(&launchFlags.backend, "backend", "", "container backend to use")
	launchCmd.Flags().StringVar(&launchFlags.image, "image", "", "container image to run in")
	launchCmd.Flags().StringVar(&launchFlags.source, "source", "", "script to source in the container before the command")
	launchCmd.Flags().StringSliceVar(&launchFlags.libraries, "libraries", nil, "extra host libraries to import in the container")
	launchCmd.Flags().StringSliceVar(&launchFlags.files, "files", nil, "extra host files to make available in the container")
	launchCmd.Flags().StringVar(&launchFlags.wi4mpi, "wi4mpi", "", "path to a WI4MPI installation to use")
	launchCmd.Flags().StringVar(&launchFlags.wi4mpiOptions, "wi4mpi-options", "", "options to pass to WI4MPI")

	launchCmd.Flags().BoolVar(&launchFlags.batch, "batch", false, "submit the launch through the job manager")
	launchCmd.Flags().IntVar(&launchFlags.np, "np", 0, "number of ranks for a batch submission")
	launchCmd.Flags().IntVar(&launchFlags.nodes, "nodes", 0, "number of nodes for a batch submission")
	launchCmd.Flags().StringVar(&launchFlags.partition, "partition", "", "partition for a batch submission")
	launchCmd.Flags().BoolVar(&launchFlags.nonBlocking, "non-blocking", false, "do not wait for the batch job to complete")

	rootCmd.AddCommand(launchCmd)
}

// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmds

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_mpi_container/internal/pkg/assets"
	"github.com/gvallee/go_mpi_container/internal/pkg/wi4mpi"
	"github.com/gvallee/go_mpi_container/pkg/detect"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/gvallee/go_util/pkg/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var initFlags struct {
	profileName string

	system string

	wi4mpiRoot    string
	wi4mpiOptions string

	mpiDir       string
	launcher     string
	launcherArgs string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an initial profile for this system",
	Long: `init creates a profile and selects it. Three modes are available and they
are mutually exclusive:

  - a built-in profile for a known system (--system),
  - a WI4MPI translation profile (--wi4mpi),
  - probing an MPI installation (the default; --mpi, --launcher and
    --launcher-args refine which installation is probed).

Probing runs a small MPI program under the launcher and records every shared
library the ranks load. The resulting profile is named after the detected
implementation (e.g. openmpi-4.1.2) unless --profile is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkInitFlags(); err != nil {
			return err
		}

		var p *profile.Profile
		var err error
		switch {
		case initFlags.system != "":
			p, err = systemProfile()
		case initFlags.wi4mpiRoot != "":
			p, err = wi4mpiProfile()
		default:
			p, err = probedProfile()
		}
		if err != nil {
			return err
		}

		s, err := store()
		if err != nil {
			return err
		}
		if err := s.Save(p); err != nil {
			return err
		}
		if err := s.Select(p.Name); err != nil {
			return err
		}

		fmt.Printf("profile %s created and selected\n", p.Name)
		return nil
	},
}

// checkInitFlags enforces the mutual exclusion between the three modes
func checkInitFlags() error {
	probing := initFlags.mpiDir != "" || initFlags.launcher != "" || initFlags.launcherArgs != ""

	if initFlags.system != "" && initFlags.wi4mpiRoot != "" {
		return errors.New("--system and --wi4mpi are mutually exclusive")
	}
	if initFlags.system != "" && probing {
		return errors.New("--system cannot be combined with probing options (--mpi, --launcher, --launcher-args)")
	}
	if initFlags.wi4mpiRoot != "" && probing {
		return errors.New("--wi4mpi cannot be combined with probing options (--mpi, --launcher, --launcher-args)")
	}
	if initFlags.wi4mpiOptions != "" && initFlags.wi4mpiRoot == "" {
		return errors.New("--wi4mpi-options requires --wi4mpi")
	}
	return nil
}

func systemProfile() (*profile.Profile, error) {
	p, err := assets.Get(initFlags.system)
	if err != nil {
		return nil, err
	}
	if initFlags.profileName != "" {
		p.Name = initFlags.profileName
	}
	return p, nil
}

func wi4mpiProfile() (*profile.Profile, error) {
	install := wi4mpi.Install{Root: initFlags.wi4mpiRoot, Options: initFlags.wi4mpiOptions}
	if err := install.Check(); err != nil {
		return nil, err
	}

	name := initFlags.profileName
	if name == "" {
		name = "wi4mpi"
	}
	return &profile.Profile{
		Name:          name,
		WI4MPI:        initFlags.wi4mpiRoot,
		WI4MPIOptions: initFlags.wi4mpiOptions,
	}, nil
}

func probedProfile() (*profile.Profile, error) {
	launcherBin := initFlags.launcher
	if launcherBin == "" {
		launcherBin = "mpirun"
	}
	if initFlags.mpiDir != "" && !strings.Contains(launcherBin, "/") {
		candidate := filepath.Join(initFlags.mpiDir, "bin", launcherBin)
		if !util.FileExists(candidate) {
			return nil, errors.Errorf("no %s in %s", launcherBin, filepath.Join(initFlags.mpiDir, "bin"))
		}
		launcherBin = candidate
	}

	argv := append([]string{launcherBin}, strings.Fields(initFlags.launcherArgs)...)
	log.Debugf("* probing with: %s", strings.Join(argv, " "))

	result, err := detect.Probe(argv, &sysCfg)
	if err != nil {
		return nil, err
	}

	p := result.Profile(initFlags.profileName)
	if p.Name == "" {
		p.Name = "default"
	}
	return &p, nil
}

func init() {
	initCmd.Flags().StringVar(&initFlags.profileName, "profile", "", "name of the profile to create")
	initCmd.Flags().StringVar(&initFlags.system, "system", "", "create a built-in profile for a known system")
	initCmd.Flags().StringVar(&initFlags.wi4mpiRoot, "wi4mpi", "", "create a profile using a WI4MPI installation")
	initCmd.Flags().StringVar(&initFlags.wi4mpiOptions, "wi4mpi-options", "", "options to pass to WI4MPI")
	initCmd.Flags().StringVar(&initFlags.mpiDir, "mpi", "", "install directory of the MPI implementation to probe")
	initCmd.Flags().StringVar(&initFlags.launcher, "launcher", "", "launcher binary to probe with (default mpirun)")
	initCmd.Flags().StringVar(&initFlags.launcherArgs, "launcher-args", "", "extra arguments for the probing launcher")

	rootCmd.AddCommand(initCmd)
}

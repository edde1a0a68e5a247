// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mpi

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/gvallee/go_mpi_container/internal/pkg/mpich"
	"github.com/gvallee/go_mpi_container/internal/pkg/mvapich2"
	"github.com/gvallee/go_mpi_container/internal/pkg/openmpi"
	"github.com/gvallee/go_mpi_container/pkg/implem"
)

// GetExtraMpirunArgs returns the arguments a given MPI implementation
// requires on its mpirun command line
func GetExtraMpirunArgs(mpiCfg *implem.Info) []string {
	var extraArgs []string

	switch mpiCfg.ID {
	case implem.OMPI:
		extraArgs = append(extraArgs, openmpi.GetExtraMpirunArgs()...)
	case implem.MVAPICH2:
		extraArgs = append(extraArgs, mvapich2.GetExtraMpirunArgs()...)
	case implem.MPICH:
		extraArgs = append(extraArgs, mpich.GetExtraMpirunArgs()...)
	}

	return extraArgs
}

// Detect figures out the details about the default MPI implementation
// that is available
func Detect() (*implem.Info, error) {
	mpirunPath, err := exec.LookPath("mpirun")
	if err != nil {
		return nil, err
	}

	mpiInfo := new(implem.Info)
	mpiBinDir := filepath.Dir(mpirunPath)
	// We assume that MPI was not installed in a system directory where binaries
	// and libraries are in totally different directories
	if filepath.Base(mpiBinDir) != "bin" {
		return nil, fmt.Errorf("%s is not a valid MPI installation", mpiBinDir)
	}
	mpiInfo.InstallDir = filepath.Dir(mpiBinDir)
	if err := mpiInfo.Load(); err != nil {
		return nil, err
	}

	return mpiInfo, nil
}

// DetectFromDir figures out which supported MPI implementation is installed
// in a given directory
func DetectFromDir(dir string) (implem.Info, error) {
	var m implem.Info
	id, version, err := openmpi.DetectFromDir(dir, nil)
	if err == nil {
		m.ID = id
		m.Version = version
		m.InstallDir = dir
		return m, nil
	}
	// Always check for MVAPICH before MPICH since they share some code, otherwise MVAPICH is not correctly detected
	id, version, err = mvapich2.DetectFromDir(dir, nil)
	if err == nil {
		m.ID = id
		m.Version = version
		m.InstallDir = dir
		return m, nil
	}
	id, version, err = mpich.DetectFromDir(dir, nil)
	if err == nil {
		m.ID = id
		m.Version = version
		m.InstallDir = dir
		return m, nil
	}

	return m, fmt.Errorf("unable to detect any supported MPI implementation from %s", dir)
}

// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package wi4mpi handles launches that translate MPI calls between
// implementations through a WI4MPI installation instead of importing a probed
// MPI stack.
package wi4mpi

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_util/pkg/util"
	"github.com/pkg/errors"
)

// Install describes a WI4MPI installation to use during a launch
type Install struct {
	// Root is the install directory of WI4MPI
	Root string

	// Options is the raw option string recorded in the profile (e.g., "-T openmpi -F mpich")
	Options string
}

// Check validates that the root actually looks like a WI4MPI installation
func (i *Install) Check() error {
	if i.Root == "" {
		return errors.New("undefined WI4MPI root")
	}
	if !util.PathExists(filepath.Join(i.Root, "lib")) {
		return errors.Errorf("%s is not a WI4MPI installation, no lib directory", i.Root)
	}
	return nil
}

// LibraryPaths returns the library directories of the installation, to be
// prepended to the container's library path
func (i *Install) LibraryPaths() []string {
	var paths []string
	for _, sub := range []string{"lib", "libexec"} {
		dir := filepath.Join(i.Root, sub)
		if util.PathExists(dir) {
			paths = append(paths, dir)
		}
	}
	return paths
}

// Libraries returns the shared objects of the installation that must be
// imported in the container
func (i *Install) Libraries() ([]string, error) {
	if err := i.Check(); err != nil {
		return nil, err
	}

	var libraries []string
	for _, dir := range i.LibraryPaths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to list %s", dir)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.Contains(entry.Name(), ".so") {
				continue
			}
			libraries = append(libraries, filepath.Join(dir, entry.Name()))
		}
	}
	return libraries, nil
}

// Preload returns the libraries WI4MPI requires in LD_PRELOAD
func (i *Install) Preload() []string {
	var preload []string
	for _, name := range []string{"libwi4mpi_prof.so", "libwi4mpi.so"} {
		path := filepath.Join(i.Root, "lib", name)
		if util.FileExists(path) {
			preload = append(preload, path)
		}
	}
	return preload
}

// Env returns the environment assignments driving the translation, derived
// from the recorded options
func (i *Install) Env() []string {
	env := []string{"WI4MPI_ROOT=" + i.Root}

	tokens := strings.Fields(i.Options)
	for idx := 0; idx < len(tokens)-1; idx++ {
		switch tokens[idx] {
		case "-T", "--to":
			env = append(env, "WI4MPI_TO="+tokens[idx+1])
			idx++
		case "-F", "--from":
			env = append(env, "WI4MPI_FROM="+tokens[idx+1])
			idx++
		}
	}
	return env
}

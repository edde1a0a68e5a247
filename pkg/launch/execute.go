// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_mpi_container/internal/pkg/entrypoint"
	"github.com/gvallee/go_mpi_container/internal/pkg/libset"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/internal/pkg/wi4mpi"
	"github.com/gvallee/go_mpi_container/pkg/container"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Execute is the inner half of a launch. It runs once per rank: it prepares
// the container described by the configuration, imports the host libraries,
// generates the entry script and starts the user program in the container.
// It returns the program's exit code
func Execute(p *profile.Profile, program []string, debug bool, sysCfg *sys.Config) (int, error) {
	if len(program) == 0 {
		return 1, errors.New("no program to execute")
	}

	c, err := container.New(p.Backend, p.Image)
	if err != nil {
		return 1, err
	}

	params := entrypoint.Params{
		Command: program,
		Debug:   debug,
	}

	set := libset.FromPaths(p.Libraries)
	if len(set) > 0 {
		if err := importLibraries(c, set, &params); err != nil {
			return 1, err
		}
		params.LibraryDir = container.ImportLibraryDir
	}

	if p.WI4MPI != "" {
		if err := setupWI4MPI(c, p, &params); err != nil {
			return 1, err
		}
	}

	for _, file := range p.Files {
		c.BindFile(file, "", container.ReadWrite)
	}

	if p.Source != "" {
		c.BindFile(p.Source, "", container.ReadOnly)
		params.SourceScript = p.Source
	}

	scriptPath, err := params.Write(sysCfg.ScratchDir)
	if err != nil {
		return 1, err
	}
	defer os.Remove(scriptPath)
	c.BindFile(scriptPath, container.EntrypointPath, container.ReadOnly)

	argv, env := c.CommandLine([]string{container.EntrypointPath})
	if sysCfg.DryRun {
		fmt.Println(strings.Join(argv, " "))
		return 0, nil
	}

	log.Debugf("executing in container: %s", strings.Join(argv, " "))
	return RunInteractive(argv, env)
}

// importLibraries binds the probed host libraries in the container. When the
// host glibc is newer than the guest's, the glibc family and the host linker
// are carried along and the entry script runs the program through that
// linker. Otherwise the glibc family is dropped and the guest's own libc
// serves the imported libraries
func importLibraries(c *container.Container, set libset.Set, params *entrypoint.Params) error {
	overlay := needsLinkerOverlay(c)

	imported := set
	if overlay {
		linkers := set.Linkers()
		if len(linkers) == 0 {
			log.Warn("host glibc is newer than the guest's but no host linker was probed, the program may fail to start")
			overlay = false
		} else {
			params.Linker = filepath.Join(container.ImportLibraryDir, filepath.Base(linkers[0].Path))
		}
	}
	if !overlay {
		imported = set.FilterGlib()
	}

	for _, lib := range imported {
		if lib.Path == "" {
			continue
		}
		if err := c.ImportLibrary(lib.Path); err != nil {
			return errors.Wrapf(err, "unable to import %s", lib.Path)
		}
	}

	guest, err := c.GuestSonames()
	if err != nil {
		log.Debugf("unable to inspect the guest libraries: %s", err)
		guest = nil
	}
	params.Preload = append(params.Preload, preloadPaths(imported, guest)...)

	return nil
}

// preloadPaths returns the in-container paths of the imported roots to
// LD_PRELOAD. A root whose soname the guest also provides must be preloaded,
// otherwise an RPATH baked in the application binary or the guest's linker
// cache resolves the guest's copy. Roots the guest does not know resolve
// through LD_LIBRARY_PATH on their own. With no guest inventory every root
// is preloaded
func preloadPaths(imported libset.Set, guest map[string]bool) []string {
	var paths []string
	for _, lib := range imported.TopLevel() {
		if guest == nil || guest[lib.Name] {
			paths = append(paths, filepath.Join(container.ImportLibraryDir, lib.Name))
		}
	}
	return paths
}

// needsLinkerOverlay compares the host and guest glibc versions. Libraries
// built against a newer glibc cannot run on an older one, so a newer host
// forces the host linker and glibc into the container
func needsLinkerOverlay(c *container.Container) bool {
	hostVersion, err := libset.HostLibcVersion()
	if err != nil {
		log.Debugf("unable to read the host libc version: %s", err)
		return false
	}

	guestVersion, err := c.LibcVersion()
	if err != nil {
		log.Debugf("unable to read the guest libc version: %s", err)
		return false
	}

	log.Debugf("host libc %s, guest libc %s", hostVersion, guestVersion)
	return hostVersion.GreaterThan(guestVersion)
}

// setupWI4MPI wires a WI4MPI installation in the container so MPI calls are
// translated between implementations at run time
func setupWI4MPI(c *container.Container, p *profile.Profile, params *entrypoint.Params) error {
	install := wi4mpi.Install{Root: p.WI4MPI, Options: p.WI4MPIOptions}
	if err := install.Check(); err != nil {
		return err
	}

	// The installation is bound at its host path so its internal references
	// keep working
	c.BindFile(install.Root, "", container.ReadOnly)

	paths := install.LibraryPaths()
	if params.LibraryDir != "" {
		paths = append(paths, params.LibraryDir)
	}
	params.LibraryDir = strings.Join(paths, ":")

	params.Preload = append(install.Preload(), params.Preload...)

	for _, assignment := range install.Env() {
		tokens := strings.SplitN(assignment, "=", 2)
		c.SetEnv(tokens[0], tokens[1])
	}

	return nil
}

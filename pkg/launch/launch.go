// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package launch turns a plain launcher command line into a containerized
// one. The outer half rewrites the command so every rank starts through the
// tool's hidden execute command, and the inner half (execute.go) sets the
// container up and hands control to the user program.
package launch

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/container"
	"github.com/gvallee/go_mpi_container/pkg/jm"
	"github.com/gvallee/go_mpi_container/pkg/job"
	"github.com/gvallee/go_mpi_container/pkg/launcher"
	"github.com/gvallee/go_mpi_container/pkg/mpi"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ExecuteCmdName is the name of the hidden inner command every rank runs
const ExecuteCmdName = "execute"

// Request describes one launch as the user asked for it
type Request struct {
	// Profile is the resolved launch configuration
	Profile profile.Profile

	// Argv is the full launcher command line, launcher binary first
	Argv []string

	// Batch requests the launch to go through the job manager
	Batch bool

	// Job carries the batch parameters when Batch is set
	Job job.Job

	// Debug propagates the logging verbosity to the inner command
	Debug bool
}

// Resolve merges a stored profile with command line overrides. Scalar
// overrides win over the profile, list overrides are appended. When no
// backend ends up selected it is guessed from the image reference
func Resolve(base profile.Profile, overrides profile.Profile) (profile.Profile, error) {
	merged := overrides
	if err := mergo.Merge(&merged, base, mergo.WithAppendSlice); err != nil {
		return merged, errors.Wrap(err, "unable to merge the launch configuration")
	}

	if merged.Backend == "" && merged.Image != "" {
		guessed, err := container.GuessBackend(merged.Image)
		if err != nil {
			log.Debugf("backend guess failed: %s", err)
		} else {
			merged.Backend = guessed
		}
	}

	return merged, nil
}

// Validate reports whether a resolved configuration can actually drive a
// launch
func Validate(p *profile.Profile) error {
	if p.Empty() {
		return errors.Errorf("profile %s is empty, run the detect command or set an image first", p.Name)
	}
	if p.Image == "" {
		return errors.New("no container image selected")
	}
	if p.Backend == "" {
		return errors.Errorf("unable to choose a container backend for image %s, use the backend option (available: %s)",
			p.Image, strings.Join(container.AvailableBackends(), ", "))
	}
	return nil
}

// innerCommand builds the command line every rank runs: the tool's own
// execute command carrying the launch configuration, then the user program
func innerCommand(selfBin string, p *profile.Profile, program []string, debug bool) []string {
	cmd := []string{selfBin, ExecuteCmdName}
	if debug {
		cmd = append(cmd, "--debug")
	}
	cmd = append(cmd, "--backend", p.Backend, "--image", p.Image)
	if p.Source != "" {
		cmd = append(cmd, "--source", p.Source)
	}
	for _, lib := range p.Libraries {
		cmd = append(cmd, "--libraries", lib)
	}
	for _, file := range p.Files {
		cmd = append(cmd, "--files", file)
	}
	if p.WI4MPI != "" {
		cmd = append(cmd, "--wi4mpi", p.WI4MPI)
		if p.WI4MPIOptions != "" {
			cmd = append(cmd, "--wi4mpi-options", p.WI4MPIOptions)
		}
	}
	cmd = append(cmd, "--")
	return append(cmd, program...)
}

// Rewrite splits a launcher command line and rebuilds it so the application
// runs through the inner execute command. It returns the full rewritten argv
func Rewrite(req *Request, selfBin string) ([]string, error) {
	info, application, err := launcher.Detect(req.Argv)
	if err != nil {
		return nil, err
	}

	argv := []string{info.BinPath}
	if info.ID == launcher.MpirunID && info.MPI != nil {
		argv = append(argv, mpi.GetExtraMpirunArgs(info.MPI)...)
	}
	argv = append(argv, info.Args...)
	argv = append(argv, innerCommand(selfBin, &req.Profile, application.Argv(), req.Debug)...)

	return argv, nil
}

// Run resolves, rewrites and executes a launch. It returns the exit code of
// the launcher
func Run(req *Request, sysCfg *sys.Config) (int, error) {
	if err := Validate(&req.Profile); err != nil {
		return 1, err
	}

	selfBin, err := os.Executable()
	if err != nil {
		return 1, errors.Wrap(err, "unable to locate the tool's own binary")
	}

	argv, err := Rewrite(req, selfBin)
	if err != nil {
		return 1, err
	}

	if sysCfg.DryRun {
		fmt.Println(strings.Join(argv, " "))
		return 0, nil
	}

	if req.Batch {
		return runBatch(req, argv, sysCfg)
	}

	log.Debugf("launching: %s", strings.Join(argv, " "))
	return RunInteractive(argv, nil)
}

// runBatch submits the rewritten command line through the job manager
func runBatch(req *Request, argv []string, sysCfg *sys.Config) (int, error) {
	jobmgr := jm.Detect()
	if err := jobmgr.Load(sysCfg); err != nil {
		return 1, errors.Wrap(err, "unable to load the job manager")
	}
	log.Debugf("* submitting through the %s job manager", jobmgr.ID)

	j := req.Job
	if j.Name == "" {
		j.Name = req.Profile.Name
	}
	j.Args = argv

	res := jobmgr.Submit(&j, sysCfg)
	if j.CleanUp != nil {
		defer func() {
			if err := j.CleanUp(); err != nil {
				log.Debugf("cleanup failed: %s", err)
			}
		}()
	}
	if res.Err != nil {
		fmt.Fprint(os.Stderr, j.GetError(sysCfg))
		return 1, errors.Wrap(res.Err, "job submission failed")
	}

	fmt.Print(j.GetOutput(sysCfg))
	fmt.Fprint(os.Stderr, j.GetError(sysCfg))
	return 0, nil
}

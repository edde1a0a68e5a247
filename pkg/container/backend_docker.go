// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// DockerDetect is the function used by our container framework to figure out
// if Docker can be used and if so return a Backend structure with all the
// "function pointers" to interact with it through our generic API
func DockerDetect() (bool, Backend) {
	var backend Backend

	binPath, err := exec.LookPath("docker")
	if err != nil {
		log.Debugln("* Docker not detected")
		return false, backend
	}

	backend.ID = DockerID
	backend.BinPath = binPath
	backend.argsFn = dockerStyleArgs

	return true, backend
}

// PodmanDetect is the function used by our container framework to figure out
// if Podman can be used. Podman is argument-compatible with Docker so the
// same translation applies
func PodmanDetect() (bool, Backend) {
	var backend Backend

	binPath, err := exec.LookPath("podman")
	if err != nil {
		log.Debugln("* Podman not detected")
		return false, backend
	}

	backend.ID = PodmanID
	backend.BinPath = binPath
	backend.argsFn = dockerStyleArgs

	return true, backend
}

// dockerStyleArgs translates an execution into 'run --rm' arguments shared by
// Docker and Podman
func dockerStyleArgs(b *Backend, e *Exec) ([]string, []string) {
	args := []string{"run", "--rm"}

	for _, bind := range e.Binds {
		spec := bind.Source + ":" + bind.Dest + ":ro"
		if bind.Option == ReadWrite {
			spec = bind.Source + ":" + bind.Dest
		}
		args = append(args, "-v", spec)
	}

	for _, assignment := range e.Env {
		args = append(args, "-e", assignment)
	}

	args = append(args, e.Image)
	args = append(args, e.Command...)
	return args, nil
}

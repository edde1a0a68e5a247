// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// SingularityDetect is the function used by our container framework to figure
// out if Singularity (or its Apptainer successor) can be used and if so
// return a Backend structure with all the "function pointers" to interact
// with it through our generic API
func SingularityDetect() (bool, Backend) {
	var backend Backend

	binPath, err := exec.LookPath("singularity")
	if err != nil {
		binPath, err = exec.LookPath("apptainer")
	}
	if err != nil {
		log.Debugln("* Singularity not detected")
		return false, backend
	}

	backend.ID = SingularityID
	backend.BinPath = binPath
	backend.argsFn = singularityArgs

	return true, backend
}

func singularityBindSpec(bind Bind) string {
	spec := bind.Source + ":" + bind.Dest + ":ro"
	if bind.Option == ReadWrite {
		spec = bind.Source + ":" + bind.Dest + ":rw"
	}
	return spec
}

// singularityArgs translates an execution into 'singularity exec' arguments.
// The environment is injected through SINGULARITYENV_ process variables,
// which work on every version of the runtime
func singularityArgs(b *Backend, e *Exec) ([]string, []string) {
	args := []string{"exec"}

	for _, bind := range e.Binds {
		args = append(args, "--bind", singularityBindSpec(bind))
	}

	var env []string
	for _, assignment := range e.Env {
		env = append(env, "SINGULARITYENV_"+assignment)
		env = append(env, "APPTAINERENV_"+assignment)
	}

	args = append(args, e.Image)
	args = append(args, e.Command...)
	return args, env
}

// Copyright (c) 2022-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"os/exec"
	"strings"

	"github.com/gvallee/go_mpi_container/internal/pkg/shifter"
	log "github.com/sirupsen/logrus"
)

// ShifterDetect is the function used by our container framework to figure out
// if Shifter can be used and if so return a Backend structure with all the
// "function pointers" to interact with it through our generic API
func ShifterDetect() (bool, Backend) {
	var backend Backend

	binPath, err := exec.LookPath("shifter")
	if err != nil {
		log.Debugln("* Shifter not detected")
		return false, backend
	}

	backend.ID = ShifterID
	backend.BinPath = binPath
	backend.argsFn = shifterArgs

	return true, backend
}

// shifterArgs translates an execution into shifter arguments. Binds already
// performed site-wide by the runtime (siteFs) are skipped and the site
// environment is honored. Shifter propagates the caller's environment, so
// injected assignments travel as process environment entries
func shifterArgs(b *Backend, e *Exec) ([]string, []string) {
	var args []string
	var siteBinds map[string]bool
	var env []string

	if configPath := shifter.LocateConfig(); configPath != "" {
		cfg, err := shifter.ParseConfigFile(configPath)
		if err != nil {
			log.Warnf("ignoring Shifter site configuration: %s", err)
		} else {
			siteBinds = make(map[string]bool)
			for _, bind := range cfg.SiteBinds() {
				siteBinds[bind] = true
			}
			env = append(env, cfg.SiteEnv()...)
		}
	}

	if e.Image != "" {
		args = append(args, "--image="+e.Image)
	}

	for _, bind := range e.Binds {
		spec := bind.Source + ":" + bind.Dest
		if siteBinds[spec] {
			log.Debugf("bind %s already performed site-wide, skipping", spec)
			continue
		}
		args = append(args, "--volume="+spec)
	}

	env = append(env, e.Env...)

	args = append(args, e.Command...)

	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("shifter argv: %s", strings.Join(args, " "))
	}
	return args, env
}

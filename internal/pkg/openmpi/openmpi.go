// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package openmpi

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_util/pkg/util"
	log "github.com/sirupsen/logrus"
)

const (
	// ID is the internal ID for Open MPI
	ID = "openmpi"
)

// MpirunValueFlags lists the mpirun flags of Open MPI that consume the
// following token(s) on the command line. The count is the number of tokens
// consumed after the flag itself. Used to tell launcher arguments apart from
// the program to launch
var MpirunValueFlags = map[string]int{
	"-np": 1, "--np": 1, "-n": 1, "-c": 1,
	"-host": 1, "--host": 1,
	"-hostfile": 1, "--hostfile": 1, "-machinefile": 1, "--machinefile": 1,
	"-mca": 2, "--mca": 2, "-gmca": 2, "--gmca": 2,
	"-x": 1,
	"-N": 1, "-npernode": 1, "--npernode": 1, "-npersocket": 1,
	"--map-by": 1, "--bind-to": 1, "--rank-by": 1,
	"-rf": 1, "--rankfile": 1,
	"-wdir": 1, "--wdir": 1, "--prefix": 1,
	"-output-filename": 1, "--output-filename": 1,
	"--timeout": 1,
}

// GetExtraMpirunArgs returns the set of arguments required for the mpirun
// command for the target platform. UCX is always preferred over openib
func GetExtraMpirunArgs() []string {
	var extraArgs []string
	extraArgs = append(extraArgs, "--mca")
	extraArgs = append(extraArgs, "btl")
	extraArgs = append(extraArgs, "^openib")
	extraArgs = append(extraArgs, "--mca")
	extraArgs = append(extraArgs, "pml")
	extraArgs = append(extraArgs, "ucx")
	return extraArgs
}

func parseOmpiInfoOutputForVersion(output string) (string, error) {
	lines := strings.Split(output, "\n")
	if !strings.HasPrefix(lines[0], "Open MPI") {
		return "", fmt.Errorf("invalid output format")
	}
	version := strings.TrimLeft(lines[0], "Open MPI v")
	version = strings.TrimRight(version, "\n")
	return version, nil
}

// DetectFromDir tries to figure out which version of Open MPI is installed in a given directory
func DetectFromDir(dir string, env []string) (string, string, error) {
	targetBin := filepath.Join(dir, "bin", "ompi_info")
	if !util.FileExists(targetBin) {
		return "", "", fmt.Errorf("%s does not exist, not an Open MPI implementation", targetBin)
	}

	var versionCmd advexec.Advcmd
	versionCmd.BinPath = targetBin
	versionCmd.CmdArgs = append(versionCmd.CmdArgs, "--version")
	versionCmd.Env = env
	res := versionCmd.Run()
	if res.Err != nil {
		log.Debugf("unable to run ompi_info: %s; stdout: %s; stderr: %s", res.Err, res.Stdout, res.Stderr)
		return "", "", res.Err
	}
	version, err := parseOmpiInfoOutputForVersion(res.Stdout)
	if err != nil {
		return "", "", err
	}

	return ID, version, nil
}

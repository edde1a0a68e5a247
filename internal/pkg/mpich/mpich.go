// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mpich

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_util/pkg/util"
)

const (
	// ID is the internal ID for MPICH
	ID = "mpich"
)

// MpirunValueFlags lists the hydra mpiexec flags that consume the following
// token(s) on the command line
var MpirunValueFlags = map[string]int{
	"-n": 1, "-np": 1,
	"-f": 1, "-hosts": 1, "-machinefile": 1, "-configfile": 1,
	"-ppn": 1,
	"-env": 2, "-genv": 2,
	"-envlist": 1, "-genvlist": 1,
	"-launcher": 1, "-launcher-exec": 1,
	"-wdir": 1, "-bind-to": 1, "-map-by": 1, "-membind": 1,
	"-iface": 1,
}

// GetExtraMpirunArgs returns the extra mpirun arguments required by MPICH for a specific configuration
func GetExtraMpirunArgs() []string {
	var extraArgs []string
	return extraArgs
}

func parseMPICHInfoOutputForVersion(output string) (string, error) {
	targetLineIdx := 1
	lines := strings.Split(output, "\n")
	if len(lines) <= targetLineIdx || !strings.Contains(lines[targetLineIdx], "Version:") {
		return "", fmt.Errorf("invalid output format")
	}
	tokens := strings.Split(lines[targetLineIdx], "Version:")
	if len(tokens) != 2 {
		return "", fmt.Errorf("invalid format: %s", lines[targetLineIdx])
	}
	version := strings.ReplaceAll(tokens[1], " ", "")
	version = strings.ReplaceAll(version, "\t", "")
	version = strings.TrimRight(version, "\n")
	return version, nil
}

// DetectFromDir tries to figure out which version of MPICH is installed in a given directory
func DetectFromDir(dir string, env []string) (string, string, error) {
	targetBin := filepath.Join(dir, "bin", "mpirun")
	if !util.FileExists(targetBin) {
		return "", "", fmt.Errorf("%s does not exist, not an MPICH implementation", targetBin)
	}

	var versionCmd advexec.Advcmd
	versionCmd.BinPath = targetBin
	versionCmd.CmdArgs = append(versionCmd.CmdArgs, "--version")
	versionCmd.ExecDir = filepath.Join(dir, "bin")
	versionCmd.Env = env
	if env == nil {
		newLDPath := filepath.Join(dir, "lib") + ":$LD_LIBRARY_PATH"
		newPath := filepath.Join(dir, "bin") + ":$PATH"
		versionCmd.Env = append(versionCmd.Env, "LD_LIBRARY_PATH="+newLDPath)
		versionCmd.Env = append(versionCmd.Env, "PATH="+newPath)
	}
	res := versionCmd.Run()
	if res.Err != nil {
		return "", "", fmt.Errorf("unable to execute %s --version: %w", targetBin, res.Err)
	}
	version, err := parseMPICHInfoOutputForVersion(res.Stdout)
	if err != nil {
		return "", "", fmt.Errorf("parseMPICHInfoOutputForVersion() failed - %w", err)
	}

	return ID, version, nil
}

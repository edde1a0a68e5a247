// Copyright (c) 2022, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mvapich2

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_mpi_container/internal/pkg/mpich"
	"github.com/gvallee/go_util/pkg/util"
)

const (
	// ID is the internal ID for MVAPICH2
	ID = "mvapich2"
)

// MpirunValueFlags lists the mpirun flags that consume the following
// token(s) on the command line. MVAPICH2 uses the hydra process manager
var MpirunValueFlags = mpich.MpirunValueFlags

// GetExtraMpirunArgs returns the set of arguments required for the mpirun command for the target platform
func GetExtraMpirunArgs() []string {
	return nil
}

func parseMVAPICH2InfoOutputForVersion(output string) (string, error) {
	if output == "" {
		return "", fmt.Errorf("empty output from version command")
	}
	lines := strings.Split(output, "\n")
	if !strings.HasPrefix(lines[0], "MVAPICH2 Version:") {
		return "", fmt.Errorf("invalid output format")
	}
	str := strings.TrimPrefix(lines[0], "MVAPICH2 Version:")
	str = strings.TrimLeft(str, " \t")
	return str, nil
}

// DetectFromDir tries to figure out which version of MVAPICH2 is installed in a given directory
func DetectFromDir(dir string, env []string) (string, string, error) {
	targetBin := filepath.Join(dir, "bin", "mpichversion")
	if !util.FileExists(targetBin) {
		return "", "", fmt.Errorf("%s does not exist, not an MVAPICH2 implementation", targetBin)
	}

	var versionCmd advexec.Advcmd
	versionCmd.BinPath = targetBin
	versionCmd.Env = env
	if env == nil {
		newLDPath := filepath.Join(dir, "lib") + ":$LD_LIBRARY_PATH"
		newPath := filepath.Join(dir, "bin") + ":$PATH"
		versionCmd.Env = append(versionCmd.Env, "LD_LIBRARY_PATH="+newLDPath)
		versionCmd.Env = append(versionCmd.Env, "PATH="+newPath)
	}
	res := versionCmd.Run()
	if res.Err != nil {
		return "", "", fmt.Errorf("unable to execute %s: %w", targetBin, res.Err)
	}
	version, err := parseMVAPICH2InfoOutputForVersion(res.Stdout)
	if err != nil {
		return "", "", fmt.Errorf("parseMVAPICH2InfoOutputForVersion() failed: %w", err)
	}

	return ID, version, nil
}

// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package launch

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// RunInteractive runs a command with the caller's standard streams attached
// and returns its exit code. Extra environment entries are appended to the
// current environment
func RunInteractive(argv []string, extraEnv []string) (int, error) {
	if len(argv) == 0 {
		return 1, errors.New("empty command line")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extraEnv...)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The launcher already reported the failure, only the code matters
		return exitErr.ExitCode(), nil
	}

	return 1, errors.Wrapf(err, "unable to run %s", argv[0])
}

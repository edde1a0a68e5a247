// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2020-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package launcher

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gvallee/go_mpi_container/pkg/app"
	"github.com/gvallee/go_mpi_container/pkg/implem"
	"github.com/gvallee/go_mpi_container/pkg/mpi"
	log "github.com/sirupsen/logrus"
)

const (
	// MpirunID is the value set to Info.ID for the mpirun/mpiexec family
	MpirunID = "mpirun"

	// SrunID is the value set to Info.ID when Slurm's srun wraps the job
	SrunID = "srun"

	// JsrunID is the value set to Info.ID when LSF's jsrun wraps the job
	JsrunID = "jsrun"

	// AprunID is the value set to Info.ID when Cray's aprun wraps the job
	AprunID = "aprun"

	// PrunID is the value set to Info.ID when PRRTE's prun wraps the job
	PrunID = "prun"
)

// ErrNoProgram is returned by Detect when the command line only contains the
// launcher and its arguments
var ErrNoProgram = fmt.Errorf("no program to launch in command line")

// srunValueFlags lists the srun flags that consume the following token.
// Long options are usually written with '=' and handled generically
var srunValueFlags = map[string]int{
	"-n": 1, "-N": 1, "-c": 1, "-p": 1, "-t": 1, "-J": 1,
	"-o": 1, "-e": 1, "-D": 1, "-w": 1, "-x": 1, "-M": 1,
	"--ntasks": 1, "--nodes": 1, "--partition": 1, "--time": 1,
	"--mpi": 1, "--cpus-per-task": 1,
}

// jsrunValueFlags lists the jsrun flags that consume the following token
var jsrunValueFlags = map[string]int{
	"-n": 1, "-r": 1, "-a": 1, "-c": 1, "-g": 1, "-p": 1,
	"-d": 1, "-l": 1, "-m": 1, "-b": 1,
}

// aprunValueFlags lists the aprun flags that consume the following token
var aprunValueFlags = map[string]int{
	"-n": 1, "-N": 1, "-d": 1, "-j": 1, "-L": 1, "-e": 1,
	"-cc": 1, "-S": 1,
}

// Info gathers all the details about the launcher wrapping a job
type Info struct {
	// ID identifies the launcher family
	ID string

	// BinPath is the path to the launcher binary
	BinPath string

	// Args is the list of arguments that belong to the launcher itself
	Args []string

	// MPI gathers information about the MPI implementation providing the
	// launcher, when it can be detected
	MPI *implem.Info
}

// valueFlags returns the table of flags consuming values for a launcher family
func valueFlags(id string, mpiCfg *implem.Info) map[string]int {
	switch id {
	case SrunID:
		return srunValueFlags
	case JsrunID:
		return jsrunValueFlags
	case AprunID:
		return aprunValueFlags
	case MpirunID:
		if mpiCfg != nil {
			return mpiCfg.MpirunValueFlags()
		}
	}
	// hydra flags are the safest default for unknown mpirun flavors
	var fallback implem.Info
	return fallback.MpirunValueFlags()
}

// family maps a launcher binary name to its launcher family
func family(binName string) (string, error) {
	switch binName {
	case "mpirun", "mpiexec", "mpiexec.hydra", "orterun":
		return MpirunID, nil
	case "srun":
		return SrunID, nil
	case "jsrun":
		return JsrunID, nil
	case "aprun":
		return AprunID, nil
	case "prun":
		return PrunID, nil
	}
	return "", fmt.Errorf("unsupported launcher %s", binName)
}

// Detect analyzes a full launch command line (launcher first) and splits it
// into the launcher on one side and the application to start on the other
func Detect(argv []string) (Info, app.Info, error) {
	var info Info
	var application app.Info

	if len(argv) == 0 {
		return info, application, fmt.Errorf("empty command line")
	}

	id, err := family(filepath.Base(argv[0]))
	if err != nil {
		return info, application, err
	}
	info.ID = id

	info.BinPath = argv[0]
	if !strings.Contains(argv[0], "/") {
		path, err := exec.LookPath(argv[0])
		if err == nil {
			info.BinPath = path
		}
	}

	if id == MpirunID {
		info.MPI = detectImplem(info.BinPath)
	}

	launcherArgs, program := Split(argv[1:], valueFlags(id, info.MPI))
	info.Args = launcherArgs

	if len(program) == 0 {
		return info, application, ErrNoProgram
	}

	application.Name = filepath.Base(program[0])
	application.BinPath = program[0]
	application.BinArgs = program[1:]

	return info, application, nil
}

// detectImplem figures out the MPI implementation an mpirun binary belongs to
func detectImplem(binPath string) *implem.Info {
	binDir := filepath.Dir(binPath)
	if filepath.Base(binDir) != "bin" {
		return nil
	}

	mpiInfo, err := mpi.DetectFromDir(filepath.Dir(binDir))
	if err != nil {
		log.Debugf("unable to detect the MPI implementation behind %s: %s", binPath, err)
		return nil
	}
	return &mpiInfo
}

// Split walks a launcher command line (without the launcher binary) and
// separates the launcher arguments from the program to start. Flags listed in
// the table consume the given number of following tokens; flags written with
// '=' are self-contained. The first token that is neither a flag nor a
// consumed value starts the program
func Split(args []string, flags map[string]int) ([]string, []string) {
	var launcherArgs []string

	for idx := 0; idx < len(args); idx++ {
		token := args[idx]

		if !strings.HasPrefix(token, "-") {
			return launcherArgs, args[idx:]
		}

		launcherArgs = append(launcherArgs, token)
		if strings.Contains(token, "=") {
			continue
		}

		consume := flags[token]
		for n := 0; n < consume && idx+1 < len(args); n++ {
			idx++
			launcherArgs = append(launcherArgs, args[idx])
		}
	}

	return launcherArgs, nil
}

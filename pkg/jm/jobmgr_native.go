// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package jm

import (
	"fmt"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/job"
)

// nativeGetOutput retrieves the launch's output after the completion of a job
func nativeGetOutput(j *job.Job, sysCfg *sys.Config) string {
	return j.OutBuffer.String()
}

// nativeGetError retrieves the error messages from a launch after the completion of a job
func nativeGetError(j *job.Job, sysCfg *sys.Config) string {
	return j.ErrBuffer.String()
}

// nativeSubmit is the function to call to run a containerized launch directly
// on the current node
func nativeSubmit(j *job.Job, jobmgr *JM, sysCfg *sys.Config) advexec.Result {
	var cmd advexec.Advcmd
	var res advexec.Result

	if len(j.Args) == 0 {
		res.Err = fmt.Errorf("launch command is undefined")
		return res
	}

	cmd.BinPath = j.Args[0]
	cmd.CmdArgs = append(cmd.CmdArgs, j.Args[1:]...)
	cmd.Env = j.Env

	j.SetOutputFn(nativeGetOutput)
	j.SetErrorFn(nativeGetError)

	res = cmd.Run()
	j.OutBuffer.WriteString(res.Stdout)
	j.ErrBuffer.WriteString(res.Stderr)
	return res
}

// NativeDetect is the function used by our job management framework when the
// launch shall run directly on the node. The native component is the default
// job manager so we do not check anything, just return the component
func NativeDetect() (bool, JM) {
	var jm JM
	jm.ID = NativeID
	jm.submitJM = nativeSubmit

	return true, jm
}

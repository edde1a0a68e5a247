// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package job

import (
	"bytes"

	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
)

// CleanUpFn is a "function pointer" to call to clean up the system after the completion of a job
type CleanUpFn func(...interface{}) error

// GetOutputFn is a "function pointer" to call to gather the output of a job after its completion
type GetOutputFn func(*Job, *sys.Config) string

// GetErrorFn is a "function pointer" to call to gather stderr from a job after its completion
type GetErrorFn func(*Job, *sys.Config) string

// Job represents a containerized launch to be submitted through a job manager
type Job struct {
	// Name is the name of the job
	Name string

	// ID is the job identifier assigned by the job manager, when applicable
	ID int

	// NP is the number of ranks
	NP int

	// NNodes is the number of nodes
	NNodes int

	// Partition is the name of the partition to use (optional)
	Partition string

	// NonBlocking requests the submission to return without waiting for completion
	NonBlocking bool

	// Args is the full command line of the containerized launch
	Args []string

	// Env is the extra environment the command line requires
	Env []string

	// BatchScript is the path to the script required to start the job (optional)
	BatchScript string

	// CleanUp is the function to call once the job is completed to clean the system
	CleanUp CleanUpFn

	// OutBuffer is a buffer with the output of the job
	OutBuffer bytes.Buffer

	// ErrBuffer is a buffer with the stderr of the job
	ErrBuffer bytes.Buffer

	// internalGetOutput is the function to call to gather the job's output based on the job manager in use
	internalGetOutput GetOutputFn

	// internalGetError is the function to call to gather the job's stderr based on the job manager in use
	internalGetError GetErrorFn
}

// GetOutput is the function to call to gather the output (stdout) of the job after its execution
func (j *Job) GetOutput(sysCfg *sys.Config) string {
	if j.internalGetOutput == nil {
		return ""
	}
	return j.internalGetOutput(j, sysCfg)
}

// GetError is the function to call to gather stderr of the job after its execution
func (j *Job) GetError(sysCfg *sys.Config) string {
	if j.internalGetError == nil {
		return ""
	}
	return j.internalGetError(j, sysCfg)
}

// SetOutputFn sets the internal function specific to the job manager to get the output of a job
func (j *Job) SetOutputFn(fn GetOutputFn) {
	j.internalGetOutput = fn
}

// SetErrorFn sets the internal function specific to the job manager to get stderr of a job
func (j *Job) SetErrorFn(fn GetErrorFn) {
	j.internalGetError = fn
}

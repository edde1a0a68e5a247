// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package jm

import (
	"fmt"
	"os"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_hpcjob/pkg/hpcjob"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/job"
)

const (
	// NativeID is the value set to JM.ID when the launch shall run directly on the node
	NativeID = "native"

	// SlurmID is the value set to JM.ID when Slurm shall be used to submit the launch
	SlurmID = "slurm"
)

// LoadFn loads a specific job manager once detected
type LoadFn func(*JM, *sys.Config) error

// SubmitFn is a "function pointer" that lets us submit a containerized launch
type SubmitFn func(*job.Job, *JM, *sys.Config) advexec.Result

// JobStatusFn is a "function pointer" to query the status of submitted jobs
type JobStatusFn func(*JM, []int) ([]hpcjob.Status, error)

// NumJobsFn is a "function pointer" to query how many jobs a user has running
type NumJobsFn func(*JM, string, string) (int, error)

// JM is the structure representing a specific job manager
type JM struct {
	// ID identifies which job manager has been detected on the system
	ID string

	// BinPath is the path to the submission binary of the job manager
	BinPath string

	// CmdArgs is the set of arguments the submission command always needs
	CmdArgs []string

	loadJM      LoadFn
	submitJM    SubmitFn
	jobStatusJM JobStatusFn
	numJobsJM   NumJobsFn
}

// Load is the function to use to load the JM component
func (jm *JM) Load(sysCfg *sys.Config) error {
	if jm.loadJM == nil {
		return nil
	}
	return jm.loadJM(jm, sysCfg)
}

// Submit runs a containerized launch through the job manager. This is a
// blocking call unless the job requests otherwise
func (jm *JM) Submit(j *job.Job, sysCfg *sys.Config) advexec.Result {
	var res advexec.Result
	if jm.submitJM == nil {
		res.Err = fmt.Errorf("job manager %s cannot submit jobs", jm.ID)
		return res
	}
	return jm.submitJM(j, jm, sysCfg)
}

// JobStatus returns the status of a set of jobs
func (jm *JM) JobStatus(jobIDs []int) ([]hpcjob.Status, error) {
	if jm.jobStatusJM == nil {
		return nil, fmt.Errorf("job manager %s cannot report job status", jm.ID)
	}
	return jm.jobStatusJM(jm, jobIDs)
}

// NumJobs returns the number of jobs a user has on a given partition
func (jm *JM) NumJobs(partition string, user string) (int, error) {
	if jm.numJobsJM == nil {
		return 0, fmt.Errorf("job manager %s cannot count jobs", jm.ID)
	}
	return jm.numJobsJM(jm, partition, user)
}

// Detect figures out which job manager must be used on the system and returns
// a structure that gathers all the data necessary to interact with it
func Detect() JM {
	// Default job manager, always applicable
	_, comp := NativeDetect()

	loaded, slurmComp := SlurmDetect()
	if loaded {
		return slurmComp
	}

	return comp
}

// TempFile creates a temporary file that is used to store a batch script
func TempFile(j *job.Job, sysCfg *sys.Config) error {
	filePrefix := "sbash-" + j.Name
	f, err := os.CreateTemp(sysCfg.ScratchDir, filePrefix+"-")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %s", err)
	}
	path := f.Name()
	f.Close()
	j.BatchScript = path

	j.CleanUp = func(...interface{}) error {
		err := os.RemoveAll(path)
		if err != nil {
			return fmt.Errorf("unable to delete %s: %s", path, err)
		}
		return nil
	}

	return nil
}

// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// Copyright (c) 2020-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package jm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_hpcjob/pkg/hpcjob"
	"github.com/gvallee/go_mpi_container/internal/pkg/sys"
	"github.com/gvallee/go_mpi_container/pkg/job"
	"github.com/gvallee/go_slurm/pkg/slurm"
	"github.com/gvallee/go_util/pkg/util"
	log "github.com/sirupsen/logrus"
)

const (
	// scriptCmdPrefix is the prefix of Slurm batch script directives
	scriptCmdPrefix = "#SBATCH"

	// slurmJobIDPrefix is what sbatch prints before the ID of a new job
	slurmJobIDPrefix = "Submitted batch job "
)

// SlurmDetect is the function used by our job management framework to figure
// out if Slurm can be used and if so return a JM structure with all the
// "function pointers" to interact with Slurm through our generic API
func SlurmDetect() (bool, JM) {
	var jm JM
	var err error

	jm.BinPath, err = exec.LookPath("sbatch")
	if err != nil {
		log.Debugln("* Slurm not detected")
		return false, jm
	}

	jm.ID = SlurmID
	jm.submitJM = slurmSubmit
	jm.loadJM = slurmLoad
	jm.jobStatusJM = slurmGetJobStatus
	jm.numJobsJM = slurmGetNumJobs

	return true, jm
}

// slurmLoad is the function called when trying to load the Slurm component
func slurmLoad(jobmgr *JM, sysCfg *sys.Config) error {
	// jobmgr.BinPath has been set during Detect()
	return nil
}

func slurmGetJobStatus(jobmgr *JM, jobIDs []int) ([]hpcjob.Status, error) {
	if jobmgr == nil {
		return nil, fmt.Errorf("undefined job manager object")
	}

	return slurm.JobStatus(jobIDs)
}

func slurmGetNumJobs(jobmgr *JM, partitionName string, user string) (int, error) {
	if jobmgr == nil {
		return 0, fmt.Errorf("undefined job manager object")
	}

	return slurm.GetNumJobs(partitionName, user)
}

// slurmGetOutput reads the content of the Slurm output file that is associated to a job
func slurmGetOutput(j *job.Job, sysCfg *sys.Config) string {
	output, err := os.ReadFile(jobOutputFilePath(j, sysCfg))
	if err != nil {
		return ""
	}

	return string(output)
}

// slurmGetError reads the content of the Slurm error file that is associated to a job
func slurmGetError(j *job.Job, sysCfg *sys.Config) string {
	errorTxt, err := os.ReadFile(jobErrorFilePath(j, sysCfg))
	if err != nil {
		return ""
	}

	return string(errorTxt)
}

func jobOutFilenamePrefix(j *job.Job) string {
	if j.Name != "" {
		return "job-" + j.Name
	}
	return "job"
}

func jobOutputFilePath(j *job.Job, sysCfg *sys.Config) string {
	return filepath.Join(sysCfg.ScratchDir, jobOutFilenamePrefix(j)+".out")
}

func jobErrorFilePath(j *job.Job, sysCfg *sys.Config) string {
	return filepath.Join(sysCfg.ScratchDir, jobOutFilenamePrefix(j)+".err")
}

func generateBatchScriptContent(j *job.Job, sysCfg *sys.Config) (string, error) {
	if j.BatchScript == "" {
		return "", fmt.Errorf("batch script path is undefined")
	}

	scriptText := "#!/bin/bash\n#\n"
	if j.Partition != "" {
		scriptText += scriptCmdPrefix + " --partition=" + j.Partition + "\n"
	}

	if j.NNodes > 0 {
		scriptText += scriptCmdPrefix + " --nodes=" + strconv.Itoa(j.NNodes) + "\n"
	}

	if j.NP > 0 {
		scriptText += scriptCmdPrefix + " --ntasks=" + strconv.Itoa(j.NP) + "\n"
	}

	scriptText += scriptCmdPrefix + " --error=" + jobErrorFilePath(j, sysCfg) + "\n"
	scriptText += scriptCmdPrefix + " --output=" + jobOutputFilePath(j, sysCfg) + "\n"

	return scriptText, nil
}

// generateJobScript writes the batch script wrapping the containerized launch
func generateJobScript(j *job.Job, sysCfg *sys.Config) error {
	// Sanity checks
	if j == nil {
		return fmt.Errorf("undefined job")
	}

	if sysCfg.ScratchDir == "" {
		return fmt.Errorf("undefined scratch directory")
	}

	if len(j.Args) == 0 {
		return fmt.Errorf("launch command is undefined")
	}

	// Create the batch script
	if j.BatchScript == "" {
		err := TempFile(j, sysCfg)
		if err != nil {
			return fmt.Errorf("unable to create temporary file: %s", err)
		}
	}

	scriptText, err := generateBatchScriptContent(j, sysCfg)
	if err != nil {
		return err
	}

	for _, assignment := range j.Env {
		scriptText += "export " + assignment + "\n"
	}
	scriptText += "\n" + strings.Join(j.Args, " ") + "\n"

	err = os.WriteFile(j.BatchScript, []byte(scriptText), 0644)
	if err != nil {
		return fmt.Errorf("unable to write to file %s: %s", j.BatchScript, err)
	}

	log.Debugf("-> Job script successfully created: %s", j.BatchScript)

	return nil
}

// slurmSubmit prepares the batch script necessary to start a given job.
//
// Note that a script does not need any specific environment to be submitted
func slurmSubmit(j *job.Job, jobmgr *JM, sysCfg *sys.Config) advexec.Result {
	var cmd advexec.Advcmd
	var resExec advexec.Result

	// Sanity checks
	if j == nil || !util.FileExists(jobmgr.BinPath) {
		resExec.Err = fmt.Errorf("job is undefined")
		return resExec
	}

	err := generateJobScript(j, sysCfg)
	if err != nil {
		resExec.Err = fmt.Errorf("unable to generate Slurm script: %s", err)
		return resExec
	}
	if j.BatchScript == "" {
		resExec.Err = fmt.Errorf("undefined batch script path")
		return resExec
	}

	cmd.BinPath = jobmgr.BinPath
	// We want the default to be blocking sbatch but users can request non-blocking
	if !j.NonBlocking {
		cmd.CmdArgs = append(cmd.CmdArgs, "-W")
	}
	cmd.CmdArgs = append(cmd.CmdArgs, jobmgr.CmdArgs...)
	cmd.CmdArgs = append(cmd.CmdArgs, j.BatchScript)

	j.SetOutputFn(slurmGetOutput)
	j.SetErrorFn(slurmGetError)

	cmdRes := cmd.Run()
	if strings.HasPrefix(cmdRes.Stdout, slurmJobIDPrefix) {
		jobIDStr := strings.TrimPrefix(cmdRes.Stdout, slurmJobIDPrefix)
		jobIDStr = strings.TrimRight(jobIDStr, "\n")
		j.ID, err = strconv.Atoi(jobIDStr)
		if err != nil {
			resExec.Err = fmt.Errorf("unable to get job ID: %s", err)
			return resExec
		}
	}

	return cmdRes
}

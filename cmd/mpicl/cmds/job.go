// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmds

import (
	"fmt"
	"os/user"
	"strconv"

	"github.com/gvallee/go_mpi_container/pkg/jm"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Interact with the jobs submitted through the job manager",
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <jobid>...",
	Short: "Report the status of submitted jobs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var jobIDs []int
		for _, arg := range args {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return errors.Errorf("invalid job ID %s", arg)
			}
			jobIDs = append(jobIDs, id)
		}

		jobmgr := jm.Detect()
		if err := jobmgr.Load(&sysCfg); err != nil {
			return err
		}
		log.Debugf("* querying the %s job manager", jobmgr.ID)

		statuses, err := jobmgr.JobStatus(jobIDs)
		if err != nil {
			return err
		}
		for idx, status := range statuses {
			fmt.Printf("%d: %s\n", jobIDs[idx], status.Str)
		}
		return nil
	},
}

var jobCountFlags struct {
	partition string
	user      string
}

var jobCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Report how many jobs a user has on a partition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userName := jobCountFlags.user
		if userName == "" {
			current, err := user.Current()
			if err != nil {
				return errors.Wrap(err, "unable to figure out the current user")
			}
			userName = current.Username
		}

		jobmgr := jm.Detect()
		if err := jobmgr.Load(&sysCfg); err != nil {
			return err
		}

		numJobs, err := jobmgr.NumJobs(jobCountFlags.partition, userName)
		if err != nil {
			return err
		}
		fmt.Println(numJobs)
		return nil
	},
}

func init() {
	jobCountCmd.Flags().StringVar(&jobCountFlags.partition, "partition", "", "partition to count jobs on")
	jobCountCmd.Flags().StringVar(&jobCountFlags.user, "user", "", "user to count jobs for (default: the current user)")

	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobCountCmd)
	rootCmd.AddCommand(jobCmd)
}

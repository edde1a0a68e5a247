// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmds

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/gvallee/go_mpi_container/pkg/detect"
	"github.com/gvallee/go_mpi_container/pkg/launch"
	"github.com/gvallee/go_mpi_container/pkg/profile"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the launch profiles of this system",
}

var profileCreateFlags struct {
	backend       string
	image         string
	source        string
	libraries     []string
	files         []string
	wi4mpi        string
	wi4mpiOptions string
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		p := profile.Profile{
			Name:          args[0],
			Backend:       profileCreateFlags.backend,
			Image:         profileCreateFlags.image,
			Source:        profileCreateFlags.source,
			Libraries:     profileCreateFlags.libraries,
			Files:         profileCreateFlags.files,
			WI4MPI:        profileCreateFlags.wi4mpi,
			WI4MPIOptions: profileCreateFlags.wi4mpiOptions,
		}
		return s.Create(&p)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := s.Delete(name); err != nil {
				return err
			}
		}
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the profiles of this system",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		profiles, err := s.List()
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("no profile, run 'mpicl init' to create one")
			return nil
		}

		selected, err := s.SelectedName()
		if err != nil {
			return err
		}

		highlight := color.New(color.FgGreen, color.Bold).SprintFunc()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Backend", "Image", "Libraries", "Files"})
		for _, p := range profiles {
			name := p.Name
			if p.Name == selected {
				name = highlight(p.Name + " *")
			}
			table.Append([]string{
				name,
				p.Backend,
				p.Image,
				strconv.Itoa(len(p.Libraries)),
				strconv.Itoa(len(p.Files)),
			})
		}
		table.Render()
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile (default: the selected one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}

		var p *profile.Profile
		if len(args) == 1 {
			p, err = s.Get(args[0])
		} else {
			p, err = s.Selected()
			if err == nil && p == nil {
				return fmt.Errorf("no profile selected")
			}
		}
		if err != nil {
			return err
		}

		fmt.Println(p.String())
		return nil
	},
}

var profileSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Select the profile used by default for launches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		return s.Select(args[0])
	},
}

var profileUnselectCmd = &cobra.Command{
	Use:   "unselect",
	Short: "Clear the profile selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		return s.Unselect()
	},
}

var profileCopyCmd = &cobra.Command{
	Use:   "copy <src> <dst>",
	Short: "Duplicate a profile under a new name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}
		return s.Copy(args[0], args[1])
	},
}

var profileDetectFlags struct {
	profileName string
}

var profileDetectCmd = &cobra.Command{
	Use:   "detect [flags] -- <launcher command>",
	Short: "Probe a launcher command and record the libraries it loads",
	Long: `detect runs a launcher command with the dynamic linker in debug mode and
records every shared library the ranks load. The result is merged into the
named profile, or saved as a new profile named after the detected MPI
implementation.`,
	Example: `  mpicl profile detect -- mpirun -np 2 ./app
  mpicl profile detect --profile mine -- srun -n 2 ./app`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store()
		if err != nil {
			return err
		}

		result, err := detect.Probe(args, &sysCfg)
		if err != nil {
			return err
		}

		probed := result.Profile(profileDetectFlags.profileName)
		if probed.Name == "" {
			probed.Name = "default"
		}

		// Detection refines an existing profile instead of replacing it
		if existing, err := s.Get(probed.Name); err == nil {
			merged, err := launch.Resolve(*existing, probed)
			if err != nil {
				return err
			}
			probed = merged
		}

		if err := s.Save(&probed); err != nil {
			return err
		}
		fmt.Printf("profile %s updated with %d libraries\n", probed.Name, len(probed.Libraries))
		return nil
	},
}

func init() {
	profileCreateCmd.Flags().StringVar(&profileCreateFlags.backend, "backend", "", "container backend the profile targets")
	profileCreateCmd.Flags().StringVar(&profileCreateFlags.image, "image", "", "default container image of the profile")
	profileCreateCmd.Flags().StringVar(&profileCreateFlags.source, "source", "", "script to source in the container before commands")
	profileCreateCmd.Flags().StringSliceVar(&profileCreateFlags.libraries, "libraries", nil, "host libraries to import in the container")
	profileCreateCmd.Flags().StringSliceVar(&profileCreateFlags.files, "files", nil, "host files to make available in the container")
	profileCreateCmd.Flags().StringVar(&profileCreateFlags.wi4mpi, "wi4mpi", "", "path to a WI4MPI installation to use")
	profileCreateCmd.Flags().StringVar(&profileCreateFlags.wi4mpiOptions, "wi4mpi-options", "", "options to pass to WI4MPI")

	profileDetectCmd.Flags().StringVar(&profileDetectFlags.profileName, "profile", "", "profile to merge the detection result into")

	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSelectCmd)
	profileCmd.AddCommand(profileUnselectCmd)
	profileCmd.AddCommand(profileCopyCmd)
	profileCmd.AddCommand(profileDetectCmd)
	rootCmd.AddCommand(profileCmd)
}

// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gvallee/go_exec/pkg/advexec"
	"github.com/gvallee/go_mpi_container/internal/pkg/libset"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// SingularityID is the value set to Backend.ID when Singularity/Apptainer shall be used
	SingularityID = "singularity"

	// DockerID is the value set to Backend.ID when Docker shall be used
	DockerID = "docker"

	// PodmanID is the value set to Backend.ID when Podman shall be used
	PodmanID = "podman"

	// ShifterID is the value set to Backend.ID when Shifter shall be used
	ShifterID = "shifter"

	// ImportLibraryDir is the in-container directory where imported host
	// libraries land. It never collides with user binds
	ImportLibraryDir = "/.mpicl/hostlibs"

	// EntrypointPath is the in-container path of the generated entry script
	EntrypointPath = "/.mpicl/entrypoint.sh"
)

// FileOption describes how a file is bound inside a container
type FileOption int

const (
	// ReadOnly binds a file without write access
	ReadOnly FileOption = iota

	// ReadWrite binds a file with write access
	ReadWrite
)

// Bind is a host file or directory made available inside the container
type Bind struct {
	// Source is the host path
	Source string

	// Dest is the in-container path
	Dest string

	// Option controls write access
	Option FileOption
}

// Exec describes one container execution ready to be translated to argv
type Exec struct {
	// Image is the container image reference
	Image string

	// Binds is the list of host files to make available
	Binds []Bind

	// Env is the list of K=V assignments to inject in the container
	Env []string

	// Command is the command to run inside the container
	Command []string
}

// ArgsFn translates an execution into backend argv and extra process
// environment entries
type ArgsFn func(b *Backend, e *Exec) ([]string, []string)

// Backend is the structure representing a specific container runtime
type Backend struct {
	// ID identifies which container runtime the backend drives
	ID string

	// BinPath is the path to the runtime binary
	BinPath string

	argsFn ArgsFn
}

// Args translates an execution into the final argv (starting with the
// runtime binary) and the extra process environment it requires
func (b *Backend) Args(e *Exec) ([]string, []string) {
	return b.argsFn(b, e)
}

// AvailableBackends lists the backend names a launch configuration can target
func AvailableBackends() []string {
	return []string{SingularityID, PodmanID, DockerID, ShifterID}
}

// Detect figures out which container backend must be used on the system and
// returns a structure that gathers all the data necessary to interact with it
func Detect() (Backend, error) {
	detectors := []func() (bool, Backend){
		SingularityDetect,
		PodmanDetect,
		DockerDetect,
		ShifterDetect,
	}

	for _, detect := range detectors {
		if loaded, backend := detect(); loaded {
			log.Debugf("* %s backend detected (%s)", backend.ID, backend.BinPath)
			return backend, nil
		}
	}

	var none Backend
	return none, errors.New("no supported container backend detected on this system")
}

// Load returns the backend matching a name, or the best detected backend when
// the name is empty
func Load(name string) (Backend, error) {
	var backend Backend
	var loaded bool

	switch name {
	case "":
		return Detect()
	case SingularityID, "apptainer":
		loaded, backend = SingularityDetect()
	case DockerID:
		loaded, backend = DockerDetect()
	case PodmanID:
		loaded, backend = PodmanDetect()
	case ShifterID:
		loaded, backend = ShifterDetect()
	default:
		return backend, errors.Errorf("unknown container backend %s (available: %s)",
			name, strings.Join(AvailableBackends(), ", "))
	}

	if !loaded {
		return backend, errors.Errorf("container backend %s is not usable on this system", name)
	}
	return backend, nil
}

// GuessBackend figures out the container backend from an image reference.
// Guessing failures are errors, the caller decides on defaults
func GuessBackend(image string) (string, error) {
	if image == "" {
		return "", errors.New("empty image reference")
	}

	for _, prefix := range []string{"docker://", "library://", "oras://", "shub://"} {
		if strings.HasPrefix(image, prefix) {
			return SingularityID, nil
		}
	}

	switch filepath.Ext(image) {
	case ".sif", ".simg", ".img":
		return SingularityID, nil
	case ".sqfs", ".squashfs":
		return ShifterID, nil
	}

	// repository:tag references belong to an image daemon
	if !strings.HasPrefix(image, "/") && strings.Count(image, ":") == 1 {
		return DockerID, nil
	}

	return "", errors.Errorf("unable to guess a container backend from image %s", image)
}

// Container gathers the state of a container being prepared for a run
type Container struct {
	// Backend drives the underlying runtime
	Backend Backend

	// Image is the image reference to instantiate
	Image string

	// Binds is the accumulated list of host files to expose
	Binds []Bind

	// Env is the accumulated list of K=V assignments to inject
	Env []string
}

// New prepares a container against a given backend name (empty means
// detection) and image
func New(backendName string, image string) (*Container, error) {
	backend, err := Load(backendName)
	if err != nil {
		return nil, err
	}

	return &Container{
		Backend: backend,
		Image:   image,
	}, nil
}

// BindFile exposes a host path inside the container. The source is
// normalized, an empty destination binds at the same path, and duplicate
// binds are dropped
func (c *Container) BindFile(src string, dest string, opt FileOption) {
	src = filepath.Clean(src)
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}
	if dest == "" {
		dest = src
	}

	for _, bind := range c.Binds {
		if bind.Source == src && bind.Dest == dest {
			return
		}
	}

	c.Binds = append(c.Binds, Bind{Source: src, Dest: dest, Option: opt})
}

// ImportLibrary binds a host library in the import directory along with all
// the symbolic links that point to the same file, so binaries linked against
// any alias of the soname still resolve it
func (c *Container) ImportLibrary(libPath string) error {
	links, err := libset.Links(libPath)
	if err != nil {
		return err
	}

	for _, link := range links {
		c.BindFile(link, filepath.Join(ImportLibraryDir, filepath.Base(link)), ReadOnly)
	}
	return nil
}

// SetEnv injects an environment assignment in the container
func (c *Container) SetEnv(key string, value string) {
	c.Env = append(c.Env, key+"="+value)
}

// CommandLine returns the full argv and extra process environment to run a
// command in the container
func (c *Container) CommandLine(command []string) ([]string, []string) {
	e := &Exec{
		Image:   c.Image,
		Binds:   c.Binds,
		Env:     c.Env,
		Command: command,
	}
	args, env := c.Backend.Args(e)
	return append([]string{c.Backend.BinPath}, args...), env
}

// Run executes a command in the container and captures its output
func (c *Container) Run(command []string) advexec.Result {
	argv, env := c.CommandLine(command)

	var cmd advexec.Advcmd
	cmd.BinPath = argv[0]
	cmd.CmdArgs = argv[1:]
	cmd.Env = env
	log.Debugf("running in container: %s", strings.Join(argv, " "))
	return cmd.Run()
}

// LibcVersion figures out the glibc version the container image carries
func (c *Container) LibcVersion() (*semver.Version, error) {
	probe := &Container{Backend: c.Backend, Image: c.Image}
	res := probe.Run([]string{"ldd", "--version"})
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, "unable to probe the guest libc")
	}
	output := res.Stdout
	if output == "" {
		output = res.Stderr
	}
	return libset.ParseLibcVersion(output)
}

// GuestSonames returns the set of sonames the container image already
// provides, from its linker cache
func (c *Container) GuestSonames() (map[string]bool, error) {
	probe := &Container{Backend: c.Backend, Image: c.Image}
	res := probe.Run([]string{"ldconfig", "-p"})
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, "unable to read the guest linker cache")
	}

	present := make(map[string]bool)
	for soname := range libset.ParseLDCache(res.Stdout) {
		present[soname] = true
	}
	return present, nil
}

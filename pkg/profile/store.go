// Copyright (c) 2021-2025, NVIDIA CORPORATION. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gvallee/go_util/pkg/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	profileSuffix = ".json"
	selectionFile = "selected"
)

// ErrNotFound is returned when a profile name does not exist in the store
var ErrNotFound = errors.New("profile not found")

// Store persists profiles as one JSON document per profile in a directory
type Store struct {
	// Dir is the directory backing the store
	Dir string
}

// NewStore returns a store backed by the given directory, creating it if
// necessary
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("undefined store directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "unable to create profile directory %s", dir)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) profilePath(name string) string {
	return filepath.Join(s.Dir, name+profileSuffix)
}

// Exists reports whether a profile with the given name is in the store
func (s *Store) Exists(name string) bool {
	return util.FileExists(s.profilePath(name))
}

// Create adds a new profile to the store. It fails if a profile with the
// same name already exists
func (s *Store) Create(p *Profile) error {
	if err := CheckName(p.Name); err != nil {
		return err
	}
	if s.Exists(p.Name) {
		return errors.Errorf("profile %s already exists", p.Name)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.write(p)
}

// Save persists a profile, overwriting any existing profile with the same name
func (s *Store) Save(p *Profile) error {
	if err := CheckName(p.Name); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.write(p)
}

// write persists the profile with a write-to-temp-then-rename so a crash
// never leaves a truncated profile behind
func (s *Store) write(p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to serialize profile")
	}

	tmp, err := os.CreateTemp(s.Dir, "."+p.Name+"-*")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary profile file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "unable to write profile")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to write profile")
	}

	if err := os.Rename(tmp.Name(), s.profilePath(p.Name)); err != nil {
		return errors.Wrapf(err, "unable to persist profile %s", p.Name)
	}
	log.Debugf("profile %s saved to %s", p.Name, s.profilePath(p.Name))
	return nil
}

// Get loads a profile from the store
func (s *Store) Get(name string) (*Profile, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.profilePath(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read profile %s", name)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "profile %s is corrupted", name)
	}
	return &p, nil
}

// Delete removes a profile from the store, unselecting it first if it is the
// current selection
func (s *Store) Delete(name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	if !s.Exists(name) {
		return errors.Wrap(ErrNotFound, name)
	}

	if selected, _ := s.SelectedName(); selected == name {
		if err := s.Unselect(); err != nil {
			return err
		}
	}

	if err := os.Remove(s.profilePath(name)); err != nil {
		return errors.Wrapf(err, "unable to delete profile %s", name)
	}
	return nil
}

// Copy duplicates an existing profile under a new name
func (s *Store) Copy(src string, dst string) error {
	p, err := s.Get(src)
	if err != nil {
		return err
	}
	p.Name = dst
	p.ID = ""
	return s.Create(p)
}

// List returns all the profiles of the store, sorted by name
func (s *Store) List() ([]*Profile, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", s.Dir)
	}

	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), profileSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), profileSuffix)
		p, err := s.Get(name)
		if err != nil {
			log.Warnf("skipping unreadable profile %s: %s", name, err)
			continue
		}
		profiles = append(profiles, p)
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Select marks a profile as the default for the next launches
func (s *Store) Select(name string) error {
	if !s.Exists(name) {
		return errors.Wrap(ErrNotFound, name)
	}
	path := filepath.Join(s.Dir, selectionFile)
	if err := os.WriteFile(path, []byte(name+"\n"), 0644); err != nil {
		return errors.Wrapf(err, "unable to select profile %s", name)
	}
	return nil
}

// Unselect clears the current selection. Clearing an empty selection is not
// an error
func (s *Store) Unselect() error {
	err := os.Remove(filepath.Join(s.Dir, selectionFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to clear profile selection")
	}
	return nil
}

// SelectedName returns the name of the currently selected profile
func (s *Store) SelectedName() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, selectionFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "unable to read profile selection")
	}
	return strings.TrimSpace(string(data)), nil
}

// Selected returns the currently selected profile, or nil when no profile is
// selected
func (s *Store) Selected() (*Profile, error) {
	name, err := s.SelectedName()
	if err != nil || name == "" {
		return nil, err
	}
	p, err := s.Get(name)
	if errors.Is(err, ErrNotFound) {
		// Selection pointing at a deleted profile, drop it
		log.Warnf("selected profile %s no longer exists", name)
		return nil, s.Unselect()
	}
	return p, err
}

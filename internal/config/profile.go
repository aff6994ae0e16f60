package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/pulsar/internal/gitcli"
)

// DefaultProfile is always considered present, even when no source
// defines it.
const DefaultProfile = "default"

// DefaultsFile is the conventional location of the repository defaults
// file, relative to the repository top level.
const DefaultsFile = ".pulsar.toml"

// ErrProfileNotFound indicates a named profile exists in no source.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named bundle of default option values selectable at
// invocation time.
type Profile struct {
	Base       string   `toml:"base"`
	Remote     string   `toml:"remote"`
	Prefix     string   `toml:"prefix"`
	To         []string `toml:"to"`
	Cc         []string `toml:"cc"`
	Signoff    bool     `toml:"signoff"`
	Notes      bool     `toml:"notes"`
	SuppressCc string   `toml:"suppresscc"`
}

// defaultsFile models the .pulsar.toml layout.
type defaultsFile struct {
	Profile map[string]Profile `toml:"profile"`
}

// loadDefaultsFile reads .pulsar.toml from the repository top level. A
// missing file yields an empty set, not an error.
func loadDefaultsFile(topLevel string) (map[string]Profile, error) {
	data, err := os.ReadFile(filepath.Join(topLevel, DefaultsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", DefaultsFile, err)
	}
	var df defaultsFile
	if err := toml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DefaultsFile, err)
	}
	return df.Profile, nil
}

// LoadProfile resolves the named profile. Values come from the git config
// namespace pulsarprofile.<name>.* and from [profile.<name>] in
// .pulsar.toml; per key, git config wins and the file fills the gaps.
// An empty name means DefaultProfile. A named profile absent from both
// sources is ErrProfileNotFound, except "default" which is always valid.
func LoadProfile(ctx context.Context, repo *gitcli.Repo, topLevel, name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}

	fileProfiles, err := loadDefaultsFile(topLevel)
	if err != nil {
		return Profile{}, err
	}
	p, inFile := fileProfiles[name]

	inGit, err := mergeGitProfile(ctx, repo, name, &p)
	if err != nil {
		return Profile{}, err
	}

	if !inFile && !inGit && name != DefaultProfile {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// mergeGitProfile overlays pulsarprofile.<name>.* git config keys onto p
// and reports whether any key was set.
func mergeGitProfile(ctx context.Context, repo *gitcli.Repo, name string, p *Profile) (bool, error) {
	prefix := "pulsarprofile." + name + "."
	found := false

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"base", &p.Base},
		{"remote", &p.Remote},
		{"prefix", &p.Prefix},
		{"suppresscc", &p.SuppressCc},
	} {
		v, ok, err := repo.ConfigGet(ctx, prefix+f.key)
		if err != nil {
			return found, err
		}
		if ok {
			*f.dst = v
			found = true
		}
	}

	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"signoff", &p.Signoff},
		{"notes", &p.Notes},
	} {
		v, ok, err := repo.ConfigGet(ctx, prefix+f.key)
		if err != nil {
			return found, err
		}
		if ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return found, fmt.Errorf("profile %s: %s: %w", name, f.key, err)
			}
			*f.dst = b
			found = true
		}
	}

	for _, f := range []struct {
		key string
		dst *[]string
	}{
		{"to", &p.To},
		{"cc", &p.Cc},
	} {
		vals, err := repo.ConfigGetAll(ctx, prefix+f.key)
		if err != nil {
			return found, err
		}
		if len(vals) > 0 {
			*f.dst = vals
			found = true
		}
	}

	return found, nil
}

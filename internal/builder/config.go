package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// SettingsFilename is the optional toolchain settings file, looked up next
// to the manifest
const SettingsFilename = "Bearmake.toml"

const (
	ProfileDebug   = "debug"
	ProfileRelease = "release"
)

const defaultBuildDir = "build"

var defaultProfiles = map[string]ProfileSection{
	ProfileDebug: {
		OptLevel: "0",
		Debug:    true,
		Warnings: true,
	},
	ProfileRelease: {
		OptLevel: "3",
	},
}

type Settings struct {
	Toolchain ToolchainSection          `toml:"toolchain"`
	Build     BuildSection              `toml:"build"`
	Profile   map[string]ProfileSection `toml:"profile"`
}

// ToolchainSection defines the [toolchain] section
type ToolchainSection struct {
	CC  string `toml:"cc"`
	CXX string `toml:"cxx"`
}

// BuildSection defines the [build] section
type BuildSection struct {
	Dir string `toml:"dir"`
}

// ProfileSection defines the [profile.*] sections. A profile given in the
// settings file replaces the built-in profile of the same name.
type ProfileSection struct {
	OptLevel string   `toml:"opt-level"`
	Debug    bool     `toml:"debug"`
	Warnings bool     `toml:"warnings"`
	Cflags   []string `toml:"cflags"`
	Ldflags  []string `toml:"ldflags"`
}

// compileFlags are passed to every `-c` and `-MM` invocation
func (p ProfileSection) compileFlags() []string {
	var flags []string
	if p.Debug {
		flags = append(flags, "-g")
	}
	if p.OptLevel != "" {
		flags = append(flags, "-O"+p.OptLevel)
	}
	return append(flags, p.Cflags...)
}

// linkFlags lead the final link invocation
func (p ProfileSection) linkFlags() []string {
	var flags []string
	if p.Debug {
		flags = append(flags, "-g")
	}
	if p.OptLevel != "" {
		flags = append(flags, "-O"+p.OptLevel)
	}
	if p.Warnings {
		flags = append(flags, "-Wall", "-Wextra")
	}
	return append(flags, p.Ldflags...)
}

func (s *Settings) Profiles() []string {
	profiles := make([]string, 0, len(s.Profile))
	for k := range s.Profile {
		profiles = append(profiles, k)
	}
	slices.Sort(profiles)
	return profiles
}

func (s *Settings) profile(name string) (ProfileSection, error) {
	if prof, ok := s.Profile[name]; ok {
		return prof, nil
	}
	return ProfileSection{}, fmt.Errorf("unknown profile %q, known profiles: %v", name, s.Profiles())
}

func DefaultSettings() *Settings {
	s := &Settings{Build: BuildSection{Dir: defaultBuildDir}, Profile: make(map[string]ProfileSection)}
	for name, prof := range defaultProfiles {
		s.Profile[name] = prof
	}
	return s
}

func ParseSettings(rdr io.Reader) (*Settings, error) {
	var parsed Settings
	dec := toml.NewDecoder(rdr).DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			return nil, errors.New(derr.String())
		case errors.As(err, &serr):
			return nil, errors.New(serr.String())
		}
		return nil, err
	}

	s := DefaultSettings()
	s.Toolchain = parsed.Toolchain
	if parsed.Build.Dir != "" {
		s.Build.Dir = parsed.Build.Dir
	}
	for name, prof := range parsed.Profile {
		s.Profile[name] = prof
	}
	return s, nil
}

// LoadSettings parses the settings file at path, falling back to the
// defaults when it does not exist
func LoadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, err
	}
	defer f.Close()

	s, err := ParseSettings(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

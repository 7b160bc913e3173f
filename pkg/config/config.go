// Package config loads an optional project file (neplg2.toml) supplying
// default values for compilation Options. It never overrides an option
// the caller explicitly set in code; it only changes where an unset
// option's default is sourced from, keeping compilation a pure function
// of (source map, options) per spec §5.
package config

import (
	"github.com/BurntSushi/toml"
)

// File is the on-disk shape of neplg2.toml.
type File struct {
	Target  string `toml:"target"`
	Profile string `toml:"profile"`
	Verbose bool   `toml:"verbose"`
	Indent  int    `toml:"indent"`
	Stdlib  string `toml:"stdlib"`
}

// Load parses TOML text into a File. Empty text is not an error: it
// simply yields the zero-value File, meaning "no overrides." (LoadPath,
// by contrast, returns an error for a file it cannot read.)
func Load(text string) (File, error) {
	var f File
	if text == "" {
		return f, nil
	}

	_, err := toml.Decode(text, &f)

	return f, err
}

// LoadPath reads and parses the project file at path.
func LoadPath(path string) (File, error) {
	var f File
	_, err := toml.DecodeFile(path, &f)

	return f, err
}

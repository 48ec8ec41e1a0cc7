// Package mrxs implements the 3DHISTECH MRXS slide-reader plug-in: the INI
// metadata parser, the Index.dat binary index reader, the grid-hash
// spatial index, the plan builder, and the parallel tile executor.
//
// Grounded file-by-file on original_source/src/fastslide/readers/mrxs/*.cpp
// (see DESIGN.md).
package mrxs

import (
	"gopkg.in/ini.v1"

	"github.com/Grescilla/fastslide-sub000/ferror"
)

// IniFile wraps gopkg.in/ini.v1 with the typed getters the MRXS metadata
// parser needs. This deliberately replaces the original's hand-rolled
// scanner (mrxs_ini_parser.cpp) with the ecosystem library the pack
// already depends on; see DESIGN.md.
type IniFile struct {
	f *ini.File
}

// LoadIniFile parses Slidedat.ini at path, stripping its UTF-8 BOM.
func LoadIniFile(path string) (*IniFile, error) {
	f, err := ini.LoadSources(ini.LoadOptions{}, path)
	if err != nil {
		return nil, ferror.Wrap(err, "mrxs.LoadIniFile")
	}
	return &IniFile{f: f}, nil
}

// HasSection reports whether section exists.
func (i *IniFile) HasSection(section string) bool {
	_, err := i.f.GetSection(section)
	return err == nil
}

// GetString looks up key within section.
func (i *IniFile) GetString(section, key string) (string, error) {
	sec, err := i.f.GetSection(section)
	if err != nil {
		return "", ferror.Newf(ferror.NotFound, "mrxs: section %q not found", section)
	}
	if !sec.HasKey(key) {
		return "", ferror.Newf(ferror.NotFound, "mrxs: key %q not found in section %q", key, section)
	}
	return sec.Key(key).String(), nil
}

// GetInt looks up key within section and parses it as an integer.
func (i *IniFile) GetInt(section, key string) (int, error) {
	s, err := i.GetString(section, key)
	if err != nil {
		return 0, err
	}
	v, err := i.f.Section(section).Key(key).Int()
	if err != nil {
		return 0, ferror.Newf(ferror.InvalidArgument, "mrxs: cannot parse int for %q in %q: %v (value %q)", key, section, err, s)
	}
	return v, nil
}

// GetFloat looks up key within section and parses it as a float64.
func (i *IniFile) GetFloat(section, key string) (float64, error) {
	s, err := i.GetString(section, key)
	if err != nil {
		return 0, err
	}
	v, err := i.f.Section(section).Key(key).Float64()
	if err != nil {
		return 0, ferror.Newf(ferror.InvalidArgument, "mrxs: cannot parse float for %q in %q: %v (value %q)", key, section, err, s)
	}
	return v, nil
}

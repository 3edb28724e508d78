package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// programFile is the on-disk TOML shape of a program:
//
//	name = "Anneal O1"
//	description = "full anneal"
//
//	[[segment]]
//	target_c = 790
//	ramp = "2h"
//	dwell = "1h"
type programFile struct {
	Name        string        `toml:"name"`
	Description string        `toml:"description"`
	Segments    []segmentFile `toml:"segment"`
}

type segmentFile struct {
	TargetC float64 `toml:"target_c"`
	Ramp    string  `toml:"ramp"`
	Dwell   string  `toml:"dwell"`
}

// DecodeTOML parses a program definition. Durations use Go syntax ("90m", "1h30m");
// an empty duration means zero.
func DecodeTOML(b []byte) (*Profile, error) {
	var f programFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	segs := make([]Segment, 0, len(f.Segments))
	for i, s := range f.Segments {
		ramp, err := parseDuration(s.Ramp)
		if err != nil {
			return nil, fmt.Errorf("segment %d ramp: %w", i, err)
		}
		dwell, err := parseDuration(s.Dwell)
		if err != nil {
			return nil, fmt.Errorf("segment %d dwell: %w", i, err)
		}
		segs = append(segs, Segment{TargetTemp: s.TargetC, RampTime: ramp, DwellTime: dwell})
	}
	return New(f.Name, f.Description, segs...)
}

// EncodeTOML renders the program definition (never the playback state).
func EncodeTOML(p *Profile) ([]byte, error) {
	f := programFile{Name: p.Name, Description: p.Description}
	for _, s := range p.Segments {
		f.Segments = append(f.Segments, segmentFile{
			TargetC: s.TargetTemp,
			Ramp:    s.RampTime.String(),
			Dwell:   s.DwellTime.String(),
		})
	}
	return toml.Marshal(f)
}

// LoadDir decodes every *.toml file in dir. A program without a name is named
// after its file.
func LoadDir(dir string) ([]*Profile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(matches))
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		p, err := DecodeTOML(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		out = append(out, p)
	}
	return out, nil
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

package rocket

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultBPM         = 120.0
	DefaultRowsPerBeat = 8.0

	fileExt = ".track"
)

// Device owns the tracks and the current row. Frame goroutine only.
type Device struct {
	bpm         float64
	rowsPerBeat float64
	row         float64

	tracks map[string]*Track
	order  []string
	log    *zap.Logger
}

func NewDevice(bpm, rowsPerBeat float64, log *zap.Logger) *Device {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	if rowsPerBeat <= 0 {
		rowsPerBeat = DefaultRowsPerBeat
	}
	return &Device{
		bpm:         bpm,
		rowsPerBeat: rowsPerBeat,
		tracks:      make(map[string]*Track),
		log:         log,
	}
}

// canonical normalises track names so that names typed in different Unicode
// forms address the same track and the same file.
func canonical(name string) string {
	return norm.NFC.String(name)
}

// Track returns the named track, creating an empty one on first use.
func (d *Device) Track(name string) *Track {
	name = canonical(name)
	if t, ok := d.tracks[name]; ok {
		return t
	}
	t := &Track{name: name, dev: d}
	d.tracks[name] = t
	d.order = append(d.order, name)
	d.log.Debug("rocket track added", zap.String("track", name))
	return t
}

func (d *Device) Lookup(name string) (*Track, bool) {
	t, ok := d.tracks[canonical(name)]
	return t, ok
}

// Names returns track names in creation order.
func (d *Device) Names() []string {
	return append([]string(nil), d.order...)
}

// Update moves the device to demo time seconds.
func (d *Device) Update(seconds float64) {
	d.row = d.RowAt(seconds)
}

// RowAt converts seconds to a fractional row.
func (d *Device) RowAt(seconds float64) float64 {
	return seconds * d.bpm / 60 * d.rowsPerBeat
}

// SecondsAt converts a row back to seconds.
func (d *Device) SecondsAt(row float64) float64 {
	return row / d.rowsPerBeat * 60 / d.bpm
}

func (d *Device) Row() float64 { return d.row }

// FileName is the file a track is stored in: <prefix>_<name>.track.
func FileName(prefix, name string) string {
	return prefix + "_" + canonical(name) + fileExt
}

// LoadDir reads every <prefix>_*.track file in dir and returns how many
// tracks were loaded.
func (d *Device) LoadDir(dir, prefix string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*"+fileExt))
	if err != nil {
		return 0, fmt.Errorf("glob tracks: %w", err)
	}
	sort.Strings(matches)

	n := 0
	for _, path := range matches {
		base := filepath.Base(path)
		name := strings.TrimSuffix(strings.TrimPrefix(base, prefix+"_"), fileExt)
		data, err := os.ReadFile(path)
		if err != nil {
			return n, fmt.Errorf("read track %s: %w", base, err)
		}
		keys, err := DecodeKeys(data)
		if err != nil {
			return n, fmt.Errorf("decode track %s: %w", base, err)
		}
		d.Track(name).SetKeys(keys)
		n++
	}
	d.log.Info("rocket tracks loaded", zap.String("dir", dir), zap.Int("tracks", n))
	return n, nil
}

// SaveDir writes every track that has keys.
func (d *Device) SaveDir(dir, prefix string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create track dir: %w", err)
	}
	n := 0
	for _, name := range d.order {
		t := d.tracks[name]
		if t.Len() == 0 {
			continue
		}
		path := filepath.Join(dir, FileName(prefix, name))
		if err := os.WriteFile(path, EncodeKeys(t.keys), 0o644); err != nil {
			return n, fmt.Errorf("write track %s: %w", name, err)
		}
		n++
	}
	return n, nil
}

type xmlSync struct {
	XMLName xml.Name   `xml:"sync"`
	Tracks  []xmlTrack `xml:"tracks>track"`
}

type xmlTrack struct {
	Name string   `xml:"name,attr"`
	Keys []xmlKey `xml:"key"`
}

type xmlKey struct {
	Row           int32   `xml:"row,attr"`
	Value         float32 `xml:"value,attr"`
	Interpolation uint8   `xml:"interpolation,attr"`
}

// ImportXML loads tracks from a Rocket editor XML export. Tracks without
// keys, and tracks that already have keys, are skipped.
func (d *Device) ImportXML(r io.Reader) (int, error) {
	var doc xmlSync
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("parse rocket xml: %w", err)
	}

	n := 0
	for _, xt := range doc.Tracks {
		if len(xt.Keys) == 0 {
			continue
		}
		if t, ok := d.Lookup(xt.Name); ok && t.Len() > 0 {
			continue
		}
		t := d.Track(xt.Name)
		for _, xk := range xt.Keys {
			interp := Interpolation(xk.Interpolation)
			if interp > Ramp {
				d.log.Warn("rocket key has unknown interpolation, using step",
					zap.String("track", xt.Name), zap.Int32("row", xk.Row))
				interp = Step
			}
			t.SetKey(Key{Row: xk.Row, Value: xk.Value, Interp: interp})
		}
		n++
	}
	d.log.Info("rocket xml imported", zap.Int("tracks", n))
	return n, nil
}

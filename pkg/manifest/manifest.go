// Package manifest writes the summary of a bake run next to its outputs.
//
// Two files are produced in the output directory: a human-readable
// bake_manifest.txt and a machine-readable bake_manifest.toml carrying the
// same data. Generated files are discovered by walking the output
// directory, so anything written by the run (textures, exported scenes) is
// listed without the caller tracking it.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/texbake/pkg/errors"
)

const (
	// TextFile is the human-readable manifest name.
	TextFile = "bake_manifest.txt"
	// TOMLFile is the machine-readable manifest name.
	TOMLFile = "bake_manifest.toml"
)

// Mode values.
const (
	ModeSeparate = "separate"
	ModeCombined = "combined"
)

// Manifest describes one completed bake.
type Manifest struct {
	RunID      string    `toml:"run_id"`
	Generated  time.Time `toml:"generated"`
	Source     string    `toml:"source"`
	Objects    []string  `toml:"objects"`
	Resolution int       `toml:"resolution"`
	Margin     int       `toml:"bake_margin"`
	Mode       string    `toml:"mode"`
	Files      []string  `toml:"files"`
}

// Collect returns every regular file below dir as a sorted, slash-separated
// relative path. The manifest files themselves are excluded.
func Collect(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == TextFile || rel == TOMLFile {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "scan %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

func modeLabel(mode string) string {
	if mode == ModeSeparate {
		return "Separate per object"
	}
	return "Combined"
}

// WriteText writes m in the plain-text layout.
func WriteText(w io.Writer, m *Manifest) error {
	var b strings.Builder
	b.WriteString("PBR Texture Baking Manifest\n")
	b.WriteString("===========================\n\n")
	fmt.Fprintf(&b, "Source: %s\n", m.Source)
	fmt.Fprintf(&b, "Objects: %s\n", strings.Join(m.Objects, ", "))
	fmt.Fprintf(&b, "Resolution: %dx%d\n", m.Resolution, m.Resolution)
	fmt.Fprintf(&b, "Bake Margin: %dpx\n", m.Margin)
	fmt.Fprintf(&b, "Mode: %s\n\n", modeLabel(m.Mode))
	b.WriteString("Generated Files:\n")
	for _, f := range m.Files {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Write collects the generated files of dir into m and writes both
// manifest files. It returns the path of the text manifest.
func Write(dir string, m *Manifest) (string, error) {
	files, err := Collect(dir)
	if err != nil {
		return "", err
	}
	m.Files = files
	if m.Generated.IsZero() {
		m.Generated = time.Now().UTC().Truncate(time.Second)
	}

	var txt bytes.Buffer
	if err := WriteText(&txt, m); err != nil {
		return "", err
	}
	txtPath := filepath.Join(dir, TextFile)
	if err := os.WriteFile(txtPath, txt.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "write manifest")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, TOMLFile), buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "write manifest")
	}
	return txtPath, nil
}

// Read decodes a machine-readable manifest.
func Read(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode manifest %s", path)
	}
	return &m, nil
}

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/pages/pkg/router"
)

// ManifestFile is the manifest file name inside the output directory.
const ManifestFile = "manifest.json"

// Manifest describes a build output directory.
type Manifest struct {
	// Pages maps bundler input names to page HTML paths.
	Pages map[string]string `json:"pages"`

	// Routes lists the URL patterns of every scanned page.
	Routes []string `json:"routes"`

	// Generated lists temporary HTML files created for the build.
	Generated []string `json:"generated"`

	// Files maps every output file (slash-separated, relative to the
	// output root) to its SHA-256 hex digest.
	Files map[string]string `json:"files"`

	BuiltAt time.Time `json:"builtAt"`
}

func newManifest(outputDir string, routes []router.Route, pages map[string]string, generated []string) (*Manifest, error) {
	m := &Manifest{
		Pages:     pages,
		Routes:    make([]string, 0, len(routes)),
		Generated: generated,
		Files:     make(map[string]string),
		BuiltAt:   time.Now().UTC(),
	}
	if m.Generated == nil {
		m.Generated = []string{}
	}
	for _, r := range routes {
		m.Routes = append(m.Routes, r.Pattern)
	}

	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		if rel == ManifestFile {
			return nil
		}
		sum, err := hashFile(path)
		if err != nil {
			return err
		}
		m.Files[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Write writes the manifest into dir.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644)
}

// ReadManifest loads the manifest of a build output directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// hashFile returns the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

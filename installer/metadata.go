package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/home-lang/pantry-sub000/internal/fsutil"
	"github.com/pkg/errors"
)

// InstalledPackage is the metadata.json record for one installed package.
// Field order here is the on-disk field order, since encoding/json
// preserves struct field order and a stable on-disk order is required.
type InstalledPackage struct {
	Domain      string   `json:"domain"`
	Version     string   `json:"version"`
	InstalledAt string   `json:"installedAt"`
	Binaries    []string `json:"binaries"`
	InstallPath string   `json:"installPath"`
}

// InstallDir returns the directory a package's files are extracted into:
// envRoot/{domain}/v{version}, distinct from its metadata.json location.
func InstallDir(envRoot, domain, version string) string {
	return filepath.Join(envRoot, domain, "v"+version)
}

// MetadataPath returns the path to a package's metadata.json pointer,
// under envRoot/pkgs/{domain}/v{version}/ rather than alongside the
// package's own installed files.
func MetadataPath(envRoot, domain, version string) string {
	return filepath.Join(envRoot, "pkgs", domain, "v"+version, "metadata.json")
}

// writeMetadata writes ip to its metadata.json location atomically.
func writeMetadata(envRoot string, ip InstalledPackage) error {
	path := MetadataPath(envRoot, ip.Domain, ip.Version)
	return fsutil.WriteAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(ip)
	})
}

// ReadMetadata loads a previously written metadata.json.
func ReadMetadata(envRoot, domain, version string) (*InstalledPackage, error) {
	path := MetadataPath(envRoot, domain, version)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening metadata %s", path)
	}
	defer f.Close()

	var ip InstalledPackage
	if err := json.NewDecoder(f).Decode(&ip); err != nil {
		return nil, errors.Wrapf(err, "parsing metadata %s", path)
	}
	return &ip, nil
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned by Restore when a target file exists and force is
// not set.
var ErrExists = errors.New("target file exists")

// Restore extracts a Backup archive into dataDir. Every file is checked
// against the manifest checksum before it replaces anything on disk, and
// existing files are only overwritten when force is set.
func Restore(ctx context.Context, archivePath, dataDir string, force bool) (Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading gzip: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return Manifest{}, fmt.Errorf("creating data dir: %w", err)
	}

	tr := tar.NewReader(gr)
	var m Manifest
	haveManifest := false
	staged := make(map[string]string)
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("reading tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := safeName(hdr.Name)
		if err != nil {
			return Manifest{}, err
		}

		if name == ManifestName {
			if haveManifest {
				return Manifest{}, fmt.Errorf("archive entry %q appears more than once", name)
			}
			if err := json.NewDecoder(tr).Decode(&m); err != nil {
				return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
			}
			haveManifest = true
			continue
		}
		if !haveManifest {
			return Manifest{}, fmt.Errorf("archive entry %q precedes the manifest", name)
		}
		want, ok := m.Files[name]
		if !ok {
			return Manifest{}, fmt.Errorf("archive entry %q not listed in manifest", name)
		}
		if _, dup := staged[name]; dup {
			return Manifest{}, fmt.Errorf("archive entry %q appears more than once", name)
		}

		tmp, sum, err := stage(tr, dataDir, name)
		if err != nil {
			return Manifest{}, err
		}
		staged[name] = tmp
		if sum != want {
			return Manifest{}, fmt.Errorf("checksum mismatch for %q", name)
		}
	}

	if !haveManifest {
		return Manifest{}, errors.New("archive has no manifest")
	}
	for name := range m.Files {
		if _, ok := staged[name]; !ok {
			return Manifest{}, fmt.Errorf("archive is missing %q", name)
		}
	}

	for name := range staged {
		target := filepath.Join(dataDir, name)
		if _, err := os.Stat(target); err == nil && !force {
			return Manifest{}, fmt.Errorf("%s: %w (use force to overwrite)", target, ErrExists)
		}
	}
	for name, tmp := range staged {
		target := filepath.Join(dataDir, name)
		// Stale WAL files would be replayed over the restored database.
		os.Remove(target + "-wal")
		os.Remove(target + "-shm")
		if err := os.Rename(tmp, target); err != nil {
			return Manifest{}, fmt.Errorf("installing %s: %w", target, err)
		}
		delete(staged, name)
	}
	return m, nil
}

func safeName(name string) (string, error) {
	clean := filepath.Base(filepath.Clean(name))
	if clean != name || strings.HasPrefix(name, ".") || clean == "" {
		return "", fmt.Errorf("unsafe archive entry %q", name)
	}
	return clean, nil
}

func stage(r io.Reader, dir, name string) (string, string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".restore-*")
	if err != nil {
		return "", "", fmt.Errorf("staging %s: %w", name, err)
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("staging %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("staging %s: %w", name, err)
	}
	return tmp.Name(), hex.EncodeToString(h.Sum(nil)), nil
}

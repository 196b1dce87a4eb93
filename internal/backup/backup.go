// Package backup provides tar.gz-based backup and restore for the stampd
// SQLite database and its config file.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/HerbHall/stampd/internal/version"
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.json"

// Manifest records what an archive holds. Checksums are hex SHA-256.
type Manifest struct {
	Version   string            `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"`
}

// Backup creates a tar.gz archive containing the SQLite database and an
// optional config file. It performs a WAL checkpoint before copying the
// database to ensure consistency.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return Manifest{}, fmt.Errorf("database file not found: %w", err)
	}

	if err := checkpointWAL(ctx, dbPath); err != nil {
		return Manifest{}, fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	files := []string{dbPath}
	if configPath != "" {
		// A configured but missing config file is skipped.
		if _, err := os.Stat(configPath); err == nil {
			files = append(files, configPath)
		}
	}

	m := Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC(),
		Files:     make(map[string]string, len(files)),
	}
	for _, f := range files {
		sum, err := fileSHA256(f)
		if err != nil {
			return Manifest{}, fmt.Errorf("checksum %s: %w", f, err)
		}
		m.Files[filepath.Base(f)] = sum
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := addManifest(tw, m); err != nil {
		return Manifest{}, fmt.Errorf("adding manifest to archive: %w", err)
	}
	for _, f := range files {
		if err := addFileToTar(tw, f, filepath.Base(f)); err != nil {
			return Manifest{}, fmt.Errorf("adding %s to archive: %w", f, err)
		}
	}

	if err := tw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("closing tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("closing gzip: %w", err)
	}
	return m, outFile.Close()
}

// checkpointWAL opens the database, runs a TRUNCATE checkpoint to flush the
// WAL, and closes the connection.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func addManifest(tw *tar.Writer, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: m.CreatedAt,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = tw.Write(data)
	return err
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}

func fileSHA256(path string) (string, error) {
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

// Package store reads and writes the files of an inventory run: raw
// per-organization listings, the public catalog, the internal
// cross-reference table, the run log and the provenance report.
//
// Every write goes to a temporary file in the target directory and is renamed
// into place, so readers never observe a partially written artifact.
package store

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/codeinventory/pkg/assemble"
	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Store locates run artifacts on disk.
type Store struct {
	RawDir     string // Per-organization raw listings
	OutputDir  string // Public catalog
	PrivateDir string // Cross-reference table, run log and provenance
}

// New returns a store rooted at the given directories.
func New(rawDir, outputDir, privateDir string) *Store {
	return &Store{RawDir: rawDir, OutputDir: outputDir, PrivateDir: privateDir}
}

// CatalogPath is the path of the public catalog.
func (s *Store) CatalogPath() string {
	return filepath.Join(s.OutputDir, constants.CatalogFileName)
}

// CrossReferencePath is the path of the cross-reference table.
func (s *Store) CrossReferencePath() string {
	return filepath.Join(s.PrivateDir, constants.CrossReferenceFileName)
}

// RunLogPath is the path of the run log.
func (s *Store) RunLogPath() string {
	return filepath.Join(s.PrivateDir, constants.RunLogFileName)
}

// ProvenancePath is the path of the provenance report.
func (s *Store) ProvenancePath() string {
	return filepath.Join(s.PrivateDir, constants.ProvenanceFileName)
}

// RawPath is the path of an organization's raw listing.
func (s *Store) RawPath(org string) string {
	return filepath.Join(s.RawDir, rawFileName(org))
}

func rawFileName(org string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, org)
	return name + constants.RawFileExtension
}

// WriteRaw writes one organization's raw listing.
func (s *Store) WriteRaw(org string, raws []inventory.RawRepository) error {
	if raws == nil {
		raws = []inventory.RawRepository{}
	}
	data, err := json.MarshalIndent(raws, "", "  ")
	if err != nil {
		return errors.WrapParse("json", org, err)
	}
	return WriteFileAtomic(s.RawPath(org), append(data, '\n'), constants.FilePermissions)
}

// LoadRaw reads every raw listing in the raw directory in file name order.
// Unreadable or malformed files are skipped and recorded in log.
func (s *Store) LoadRaw(log *runlog.Log) ([]inventory.RawRepository, error) {
	entries, err := os.ReadDir(s.RawDir)
	if err != nil {
		return nil, errors.WrapIO("read", s.RawDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), constants.RawFileExtension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var all []inventory.RawRepository
	for _, name := range names {
		path := filepath.Join(s.RawDir, name)
		raws, err := readRawFile(path)
		if err != nil {
			log.Add(runlog.Entry{
				Severity: runlog.SeverityError,
				Kind:     runlog.KindRawFile,
				Message:  err.Error(),
				Err:      err,
			})
			continue
		}
		all = append(all, raws...)
	}
	return all, nil
}

func readRawFile(path string) ([]inventory.RawRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var raws []inventory.RawRepository
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return raws, nil
}

// WriteCatalog writes the public catalog.
func (s *Store) WriteCatalog(catalog *inventory.Catalog) error {
	var buf bytes.Buffer
	if err := assemble.WriteCatalog(&buf, catalog); err != nil {
		return err
	}
	return WriteFileAtomic(s.CatalogPath(), buf.Bytes(), constants.FilePermissions)
}

// ReadCatalog reads a catalog file.
func ReadCatalog(path string) (*inventory.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close() //nolint:errcheck
	catalog, err := assemble.ReadCatalog(f)
	if err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return catalog, nil
}

// WriteCrossReference writes the private cross-reference table. It refuses
// to write into the directory that holds the public catalog.
func (s *Store) WriteCrossReference(mappings []inventory.PseudonymMapping) error {
	same, err := sameDir(s.PrivateDir, s.OutputDir)
	if err != nil {
		return err
	}
	if same {
		return errors.NewValidationError("private_dir", s.PrivateDir,
			"cross-reference table must not be written next to the public catalog")
	}

	var buf bytes.Buffer
	if err := assemble.WriteCrossReference(&buf, mappings); err != nil {
		return err
	}
	return WriteFileAtomic(s.CrossReferencePath(), buf.Bytes(), constants.SecureFilePermissions)
}

// ReadCrossReference reads a cross-reference table.
func ReadCrossReference(path string) ([]inventory.PseudonymMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close() //nolint:errcheck
	return assemble.ReadCrossReference(f)
}

// WriteRunLog writes the run log.
func (s *Store) WriteRunLog(log *runlog.Log) error {
	return s.writePrivate(s.RunLogPath(), log.WriteJSON)
}

// WriteProvenance writes the provenance report.
func (s *Store) WriteProvenance(file *provenance.File) error {
	return s.writePrivate(s.ProvenancePath(), file.Write)
}

func (s *Store) writePrivate(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return WriteFileAtomic(path, buf.Bytes(), constants.SecureFilePermissions)
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, errors.WrapIO("resolve", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, errors.WrapIO("resolve", b, err)
	}
	if absA == absB {
		return true, nil
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place. Missing parent directories are created.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapIO("chmod", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapIO("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.WrapIO("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

package store

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MemStore is an in-memory store: ingested paths get deterministic
// hashed store paths, references and derivations live in maps. It
// backs tests and the default CLI setup, where no real store daemon is
// available.
type MemStore struct {
	StoreDir string

	objects     map[string]string              // store path → source path
	references  map[string]map[string]struct{} // store path → direct refs
	derivations map[string]Derivation
}

// NewMemStore creates an empty store rooted at /nix/store.
func NewMemStore() *MemStore {
	return &MemStore{
		StoreDir:    "/nix/store",
		objects:     make(map[string]string),
		references:  make(map[string]map[string]struct{}),
		derivations: make(map[string]Derivation),
	}
}

// Dir returns the store directory.
func (s *MemStore) Dir() string { return s.StoreDir }

// nixBase32 is the digest alphabet used in store path names.
var nixBase32 = base32.NewEncoding("0123456789abcdfghijklmnpqrsvwxyz").WithPadding(base32.NoPadding)

func (s *MemStore) makePath(digest []byte, name string) string {
	return filepath.Join(s.StoreDir, strings.ToLower(nixBase32.EncodeToString(digest[:20]))+"-"+name)
}

// IngestPath hashes the file or tree at path and records a store
// object for it.
func (s *MemStore) IngestPath(path, name string, method IngestionMethod) (string, error) {
	h := sha256.New()
	switch method {
	case IngestFlat:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		h.Write(data)
	default:
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(path, p)
			fmt.Fprintf(h, "%s\x00%v\x00", rel, d.IsDir())
			if d.Type().IsRegular() {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				h.Write(data)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	storePath := s.makePath(h.Sum(nil), name)
	s.objects[storePath] = path
	return storePath, nil
}

// AddObject registers a store path with the given references, for
// tests that need pre-existing artefacts.
func (s *MemStore) AddObject(storePath string, refs ...string) {
	s.objects[storePath] = storePath
	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	s.references[storePath] = set
}

// AddDerivation registers a derivation under its store path.
func (s *MemStore) AddDerivation(storePath string, drv Derivation) {
	s.objects[storePath] = storePath
	s.derivations[storePath] = drv
}

// IsInStore reports whether path is under the store directory.
func (s *MemStore) IsInStore(path string) bool {
	return path == s.StoreDir || strings.HasPrefix(path, s.StoreDir+"/")
}

// ToRealPath maps a store path to disk; for the in-memory store that
// is the recorded source location, or the path itself.
func (s *MemStore) ToRealPath(storePath string) string {
	if src, ok := s.objects[storePath]; ok && src != "" {
		return src
	}
	return storePath
}

// PrintStorePath renders a store path.
func (s *MemStore) PrintStorePath(storePath string) string { return storePath }

// ParseStorePath validates that s names a direct child of the store
// directory with a digest-name component.
func (s *MemStore) ParseStorePath(p string) (string, error) {
	if !s.IsInStore(p) || p == s.StoreDir {
		return "", &InvalidPathError{Path: p}
	}
	rest := strings.TrimPrefix(p, s.StoreDir+"/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", &InvalidPathError{Path: p}
	}
	if i := strings.IndexByte(rest, '-'); i < 1 {
		return "", &InvalidPathError{Path: p}
	}
	return p, nil
}

// ComputeClosure walks the recorded references transitively.
func (s *MemStore) ComputeClosure(storePath string) (map[string]struct{}, error) {
	if _, ok := s.objects[storePath]; !ok {
		return nil, &InvalidPathError{Path: storePath}
	}
	closure := make(map[string]struct{})
	var walk func(p string)
	walk = func(p string) {
		if _, seen := closure[p]; seen {
			return
		}
		closure[p] = struct{}{}
		refs := make([]string, 0, len(s.references[p]))
		for r := range s.references[p] {
			refs = append(refs, r)
		}
		sort.Strings(refs)
		for _, r := range refs {
			walk(r)
		}
	}
	walk(storePath)
	return closure, nil
}

// ReadDerivation loads a registered derivation.
func (s *MemStore) ReadDerivation(storePath string) (Derivation, error) {
	drv, ok := s.derivations[storePath]
	if !ok {
		return Derivation{}, &InvalidPathError{Path: storePath}
	}
	return drv, nil
}

// MakeFixedOutputPathFromCA derives a deterministic store path from a
// content address.
func (s *MemStore) MakeFixedOutputPathFromCA(name, ca string) (string, error) {
	h := sha256.Sum256([]byte("fixed:" + ca + ":" + name))
	return s.makePath(h[:], name), nil
}

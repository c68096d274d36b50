package vfs

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type archiveEntry struct {
	data  []byte
	isDir bool
}

// Archive is a gzipped-tar-backed FileSystem. The archive is streamed
// once at construction time into an immutable map; every subsequent
// call is a pure lookup requiring no locking.
type Archive struct {
	entries map[string]archiveEntry
}

// NewArchive opens and fully indexes the gzipped tar at path.
// Directory entries are stored with a trailing "/"; file entries are
// stored with their complete decoded bytes.
func NewArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("vfs: opening archive %s: %w", path, err)
	}
	defer gz.Close()

	entries := make(map[string]archiveEntry)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vfs: reading archive %s: %w", path, err)
		}

		name := normalizeArchivePath(hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if !strings.HasSuffix(name, "/") {
				name += "/"
			}
			entries[name] = archiveEntry{isDir: true}
		case tar.TypeReg:
			data := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, data); err != nil {
				return nil, fmt.Errorf("vfs: reading %s from archive: %w", hdr.Name, err)
			}
			entries[name] = archiveEntry{data: data}
		}
	}

	return &Archive{entries: entries}, nil
}

// normalizeArchivePath strips a leading "./" and a leading "/", the
// same normalization applied to request paths.
func normalizeArchivePath(name string) string {
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	return name
}

func (a *Archive) Read(path string) ([]byte, error) {
	e, ok := a.entries[normalize(path)]
	if !ok || e.isDir {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return e.data, nil
}

func (a *Archive) Exists(path string) bool {
	_, ok := a.entries[normalize(path)]
	return ok
}

// List enumerates the immediate children of path: for every stored
// key starting with the normalized prefix (path+"/", or empty when
// path is root), take the first path segment, dedupe, and suffix it
// with "/" iff some stored key extends it further.
func (a *Archive) List(path string) ([]string, error) {
	norm := normalize(path)
	prefix := ""
	if norm != "" {
		prefix = strings.TrimSuffix(norm, "/") + "/"
		if _, ok := a.entries[prefix]; !ok && !a.hasAnyPrefix(prefix) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}

	seen := make(map[string]bool)
	var names []string
	for key := range a.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue
		}
		segment, isDir := rest, false
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			segment, isDir = rest[:i], true
		} else if strings.HasSuffix(rest, "/") {
			segment, isDir = strings.TrimSuffix(rest, "/"), true
		}
		if segment == "" || seen[segment] {
			continue
		}
		seen[segment] = true
		if isDir {
			names = append(names, segment+"/")
		} else {
			names = append(names, segment)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (a *Archive) hasAnyPrefix(prefix string) bool {
	for key := range a.entries {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

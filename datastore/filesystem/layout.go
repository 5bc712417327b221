package filesystem

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/serialization"
	"github.com/rs/xid"
	"golang.org/x/xerrors"
)

const (
	liveDir     = "live"
	pendingDir  = "pending"
	dataDir     = "data"
	metadataDir = "metadata"

	// metadataPrefix starts the name of a metadata file. No key segment can
	// contain it, so metadata files never collide with child keys.
	metadataPrefix = "."

	// tempPrefix starts the name of a file being written.
	tempPrefix = "~"

	// stagingPrefix starts the name of a live directory built by a commit.
	stagingPrefix = ".live-"

	dirPerm  = 0o755
	filePerm = 0o644
)

// layout resolves the physical paths of one version of the data.
type layout struct {
	root string
}

func (l layout) dataRoot() string {
	return filepath.Join(l.root, dataDir)
}

func (l layout) metadataRoot() string {
	return filepath.Join(l.root, metadataDir)
}

func (l layout) dataPath(key datastore.Key) string {
	return filepath.Join(append([]string{l.dataRoot()}, key.Segments()...)...)
}

func (l layout) metadataDirPath(dataKey datastore.Key) string {
	return filepath.Join(append([]string{l.metadataRoot()}, dataKey.Segments()...)...)
}

func (l layout) metadataPath(metadataKey, dataKey datastore.Key) string {
	return filepath.Join(l.metadataDirPath(dataKey), metadataPrefix+metadataKey.Name())
}

// isNotFound returns true when the path, or one of its parents, does not
// exist as a directory.
func isNotFound(err error) bool {
	return xerrors.Is(err, iofs.ErrNotExist) || xerrors.Is(err, syscall.ENOTDIR)
}

// readValue reads and decodes the value stored in the file. The boolean is
// false if no value is stored at this path.
func readValue(path string) (datastore.Value, bool, error) {
	info, err := os.Lstat(path)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, datastore.NewIO("stat", path, err)
	}

	if info.IsDir() {
		return nil, false, nil
	}

	if !info.Mode().IsRegular() {
		return nil, false, datastore.NewCorruption(path, "not a regular file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, datastore.NewIO("read", path, err)
	}

	value, err := serialization.UnmarshalValue(data)
	if err != nil {
		return nil, false, datastore.NewCorruption(path, err.Error())
	}

	return value, true, nil
}

// writeValue encodes the value and replaces the content of the file in one
// rename so that a reader never observes a partial value.
func writeValue(path string, value datastore.Value) error {
	data, err := serialization.MarshalValue(value)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, dirPerm)
	if err != nil {
		return datastore.NewIO("create directory", dir, err)
	}

	// An empty directory can be left behind by keys that lived under this
	// one.
	info, err := os.Lstat(path)
	if err == nil && info.IsDir() {
		err = os.Remove(path)
		if err != nil {
			return datastore.NewIO("remove directory", path, err)
		}
	}

	tmp := filepath.Join(dir, tempPrefix+filepath.Base(path)+"-"+xid.New().String())

	err = os.WriteFile(tmp, data, filePerm)
	if err != nil {
		return datastore.NewIO("write", tmp, err)
	}

	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)
		return datastore.NewIO("rename", path, err)
	}

	return nil
}

// removeFile deletes a value or metadata file and prunes the directories left
// empty up to the stop directory. A missing file is not an error, and a
// directory at this path means the key has no value.
func removeFile(path, stop string) error {
	info, err := os.Lstat(path)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return datastore.NewIO("stat", path, err)
	}

	if info.IsDir() {
		return nil
	}

	err = os.Remove(path)
	if err != nil && !isNotFound(err) {
		return datastore.NewIO("remove", path, err)
	}

	pruneEmptyDirs(filepath.Dir(path), stop)

	return nil
}

// pruneEmptyDirs removes the directory and its parents while they are empty,
// without going above the stop directory.
func pruneEmptyDirs(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		err := os.Remove(dir)
		if err != nil {
			return
		}

		dir = filepath.Dir(dir)
	}
}

// walkFiles calls the function for every regular file under the root, with
// the segments of its path relative to the root. Files being written are
// skipped, and a missing root is an empty tree.
func walkFiles(root string, fn func(segments []string, path string) error) error {
	_, err := os.Stat(root)
	if xerrors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return datastore.NewIO("stat", root, err)
	}

	return filepath.WalkDir(root, func(path string, entry iofs.DirEntry, err error) error {
		if err != nil {
			return datastore.NewIO("list", path, err)
		}

		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			return nil
		}

		if !entry.Type().IsRegular() {
			return datastore.NewCorruption(path, "not a regular file")
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return datastore.NewIO("list", path, err)
		}

		return fn(strings.Split(rel, string(filepath.Separator)), path)
	})
}

// listKeys returns the data keys of the version starting with the prefix.
func (l layout) listKeys(prefix string) (datastore.KeySet, error) {
	keys := make(datastore.KeySet)

	err := walkFiles(l.dataRoot(), func(segments []string, path string) error {
		key, err := datastore.NewKeyFromSegments(datastore.DataKey, segments)
		if err != nil {
			return datastore.NewCorruption(path, "file name is not a valid key")
		}

		if key.HasPrefix(prefix) {
			keys.Add(key)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return keys, nil
}

// listMetadata returns the metadata names of every data key of the version
// starting with the prefix.
func (l layout) listMetadata(prefix string) (map[datastore.Key]datastore.KeySet, error) {
	res := make(map[datastore.Key]datastore.KeySet)

	err := walkFiles(l.metadataRoot(), func(segments []string, path string) error {
		dataKey, metadataKey, err := parseMetadataPath(segments)
		if err != nil {
			return datastore.NewCorruption(path, err.Error())
		}

		if !dataKey.HasPrefix(prefix) {
			return nil
		}

		names := res[dataKey]
		if names == nil {
			names = make(datastore.KeySet)
			res[dataKey] = names
		}

		names.Add(metadataKey)

		return nil
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

func parseMetadataPath(segments []string) (datastore.Key, datastore.Key, error) {
	last := segments[len(segments)-1]

	if len(segments) < 2 || !strings.HasPrefix(last, metadataPrefix) {
		return datastore.Key{}, datastore.Key{}, xerrors.New("not a metadata file")
	}

	dataKey, err := datastore.NewKeyFromSegments(datastore.DataKey, segments[:len(segments)-1])
	if err != nil {
		return datastore.Key{}, datastore.Key{}, xerrors.New("directory is not a valid key")
	}

	metadataKey, err := datastore.NewKey(datastore.MetaKey, strings.TrimPrefix(last, metadataPrefix))
	if err != nil {
		return datastore.Key{}, datastore.Key{}, xerrors.New("invalid metadata name")
	}

	return dataKey, metadataKey, nil
}

// load reads the whole version in a parcel.
func (l layout) load() (*datastore.Parcel, error) {
	parcel := datastore.NewParcel()

	keys, err := l.listKeys("")
	if err != nil {
		return nil, err
	}

	for key := range keys {
		value, _, err := readValue(l.dataPath(key))
		if err != nil {
			return nil, err
		}

		parcel.Data[key] = value
	}

	metadata, err := l.listMetadata("")
	if err != nil {
		return nil, err
	}

	for dataKey, names := range metadata {
		for name := range names {
			value, _, err := readValue(l.metadataPath(name, dataKey))
			if err != nil {
				return nil, err
			}

			parcel.SetMetadata(name, dataKey, value)
		}
	}

	return parcel, nil
}

// store writes every entry of the parcel in the version.
func (l layout) store(parcel *datastore.Parcel) error {
	for key, value := range parcel.Data {
		err := writeValue(l.dataPath(key), value)
		if err != nil {
			return err
		}
	}

	for dataKey, entries := range parcel.Metadata {
		for name, value := range entries {
			err := writeValue(l.metadataPath(name, dataKey), value)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// listMetadataNames returns the names of the metadata files of the directory
// of a data key.
func listMetadataNames(dir string) (datastore.KeySet, error) {
	names := make(datastore.KeySet)

	entries, err := os.ReadDir(dir)
	if isNotFound(err) {
		return names, nil
	}
	if err != nil {
		return nil, datastore.NewIO("list", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), metadataPrefix) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		if !entry.Type().IsRegular() {
			return nil, datastore.NewCorruption(path, "not a regular file")
		}

		name, err := datastore.NewKey(datastore.MetaKey, strings.TrimPrefix(entry.Name(), metadataPrefix))
		if err != nil {
			return nil, datastore.NewCorruption(path, "invalid metadata name")
		}

		names.Add(name)
	}

	return names, nil
}

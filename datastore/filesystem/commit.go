package filesystem

import (
	"os"
	"path/filepath"

	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/rs/xid"
)

// Commit implements datastore.DataStore. The new live version is built in a
// staging directory next to the current one, and the live link is swapped to
// it with a single rename. A failure before the swap leaves the live version
// untouched. Once swapped, the previous live directory and the pending version
// are removed.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	pending, err := s.layout(datastore.Pending).load()
	if err != nil {
		return nil, err
	}

	if pending.IsEmpty() {
		return make(datastore.KeySet), nil
	}

	live, err := s.layout(datastore.Live).load()
	if err != nil {
		return nil, err
	}

	merged, committed := datastore.MergePending(live, pending)

	staging, err := s.stage(merged)
	if err != nil {
		return nil, err
	}

	previous, err := s.swapLive(staging)
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	if previous != "" {
		err = os.RemoveAll(previous)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", previous).
				Msg("failed to remove previous live version")
		}
	}

	err = os.RemoveAll(s.pendingPath())
	if err != nil {
		return nil, datastore.NewIO("remove pending version", s.pendingPath(), err)
	}

	s.logger.Info().Int("keys", len(committed)).Msg("committed pending version")

	return committed, nil
}

// DeletePending implements datastore.DataStore.
func (s *DataStore) DeletePending() (datastore.KeySet, error) {
	keys, err := s.layout(datastore.Pending).listKeys("")
	if err != nil {
		return nil, err
	}

	err = os.RemoveAll(s.pendingPath())
	if err != nil {
		return nil, datastore.NewIO("remove pending version", s.pendingPath(), err)
	}

	s.logger.Debug().Int("keys", len(keys)).Msg("pending version deleted")

	return keys, nil
}

// stage writes the parcel in a new directory and returns its path.
func (s *DataStore) stage(parcel *datastore.Parcel) (string, error) {
	err := os.MkdirAll(s.base, dirPerm)
	if err != nil {
		return "", datastore.NewIO("create directory", s.base, err)
	}

	staging := filepath.Join(s.base, stagingPrefix+xid.New().String())

	err = os.Mkdir(staging, dirPerm)
	if err != nil {
		return "", datastore.NewIO("create directory", staging, err)
	}

	err = layout{root: staging}.store(parcel)
	if err != nil {
		os.RemoveAll(staging)
		return "", err
	}

	return staging, nil
}

// ensureLive makes sure the live version exists before writing into it
// directly.
func (s *DataStore) ensureLive() error {
	_, err := os.Lstat(s.livePath())
	if err == nil {
		return nil
	}

	if !isNotFound(err) {
		return datastore.NewIO("stat", s.livePath(), err)
	}

	staging, err := s.stage(datastore.NewParcel())
	if err != nil {
		return err
	}

	_, err = s.swapLive(staging)
	if err != nil {
		os.RemoveAll(staging)
		return err
	}

	return nil
}

// swapLive points the live link to the staging directory. It returns the path
// of the previous live directory, if any, so that the caller can remove it.
func (s *DataStore) swapLive(staging string) (string, error) {
	live := s.livePath()

	var previous string

	info, err := os.Lstat(live)
	switch {
	case isNotFound(err):
	case err != nil:
		return "", datastore.NewIO("stat", live, err)
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(live)
		if err != nil {
			return "", datastore.NewIO("read link", live, err)
		}

		if !filepath.IsAbs(target) {
			target = filepath.Join(s.base, target)
		}

		previous = target
	default:
		// A plain live directory is moved aside first, which leaves a short
		// window without a live version.
		previous = filepath.Join(s.base, stagingPrefix+"old-"+xid.New().String())

		err = os.Rename(live, previous)
		if err != nil {
			return "", datastore.NewIO("rename", live, err)
		}
	}

	link := filepath.Join(s.base, tempPrefix+liveDir+"-"+xid.New().String())

	err = os.Symlink(filepath.Base(staging), link)
	if err != nil {
		s.restore(previous, info)
		return "", datastore.NewIO("create link", link, err)
	}

	err = os.Rename(link, live)
	if err != nil {
		os.Remove(link)
		s.restore(previous, info)
		return "", datastore.NewIO("rename", link, err)
	}

	return previous, nil
}

// restore moves back a plain live directory that was moved aside by a failed
// swap.
func (s *DataStore) restore(previous string, info os.FileInfo) {
	if previous == "" || info == nil || info.Mode()&os.ModeSymlink != 0 {
		return
	}

	err := os.Rename(previous, s.livePath())
	if err != nil {
		s.logger.Error().Err(err).Str("path", previous).
			Msg("failed to restore live version")
	}
}

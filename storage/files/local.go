package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
	"github.com/cadenza-app/cadenza/core/resource"
)

// localStore keeps resource files on the local disk under a root directory.
type localStore struct {
	root string
}

var _ resource.FileStorage = (*localStore)(nil)

// NewLocalStore returns a FileStorage rooted at core.Conf.MediaRoot.
func NewLocalStore() (resource.FileStorage, error) {
	return NewLocalStoreAt(core.Conf.MediaRoot)
}

func NewLocalStoreAt(root string) (resource.FileStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &localStore{root: root}, nil
}

// fullPath resolves a storage key inside the root, refusing traversal.
func (ls *localStore) fullPath(key string) (string, error) {
	full := filepath.Join(ls.root, filepath.FromSlash(key))
	if !strings.HasPrefix(full, filepath.Clean(ls.root)+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

func (ls *localStore) Save(key string, r io.Reader) (int64, error) {
	full, err := ls.fullPath(key)
	if err != nil {
		return 0, err
	}
	if err = os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return 0, errors.Wrap(err, "creating resource dir")
	}
	f, err := os.Create(full)
	if err != nil {
		return 0, errors.Wrap(err, "creating resource file")
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return 0, errors.Wrap(err, "writing resource file")
	}
	return n, nil
}

func (ls *localStore) Open(key string) (io.ReadCloser, error) {
	full, err := ls.fullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, errors.Wrap(err, "opening resource file")
	}
	return f, nil
}

func (ls *localStore) Delete(key string) error {
	full, err := ls.fullPath(key)
	if err != nil {
		return err
	}
	if err = os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing resource file")
	}
	// drop the now-empty per-resource dir, ignore failures
	_ = os.Remove(filepath.Dir(full))
	return nil
}

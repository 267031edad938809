package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	// FsTargetDirPrefix marks an 'active' directory with downloaded
	// dataset files. All other directories and files in base directory
	// are ok to be removed at any given moment in time.
	//
	// Suffix is a checksum of the directory contents.
	FsTargetDirPrefix = "target_"

	// FsTempDirPrefix is a prefix of temporary directories which are
	// populated during update. When download is finished, temporary
	// directory is promoted to a target one.
	FsTempDirPrefix = "tmp_"
)

type fsDir struct {
	fs  afero.Fs
	dir string
}

func (f fsDir) TempDir() (string, error) {
	if err := f.fs.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create base directory %s: %w", f.dir, err)
	}

	return afero.TempDir(f.fs, f.dir, FsTempDirPrefix)
}

// GetTargetDir returns a path to the most recent target directory. If
// there is no such directory, empty string is returned.
func (f fsDir) GetTargetDir() (string, error) {
	infos, err := f.readDir()
	if err != nil {
		return "", fmt.Errorf("cannot find target dir: %w", err)
	}

	target := ""

	var targetInfo os.FileInfo

	for fullpath, info := range infos {
		found := info.IsDir() &&
			strings.HasPrefix(info.Name(), FsTargetDirPrefix) &&
			(targetInfo == nil || info.ModTime().After(targetInfo.ModTime()))
		if found {
			target = fullpath
			targetInfo = info
		}
	}

	return target, nil
}

// Promote renames a directory to the target one. Second return value
// is false if a target directory with the same contents already
// exists; in that case dir is left untouched.
func (f fsDir) Promote(dir string) (string, bool, error) {
	checksum, err := f.makeChecksum(dir)
	if err != nil {
		return "", false, fmt.Errorf("cannot make a checksum: %w", err)
	}

	targetName := filepath.Join(f.dir, FsTargetDirPrefix+checksum)

	if exists, _ := afero.DirExists(f.fs, targetName); exists {
		return targetName, false, nil
	}

	if err := f.fs.Rename(dir, targetName); err != nil {
		return "", false, fmt.Errorf("cannot rename %s to %s: %w", dir, targetName, err)
	}

	return targetName, true, nil
}

func (f fsDir) Cleanup(filesToSave ...string) error {
	infos, err := f.readDir()
	if err != nil {
		return fmt.Errorf("cannot read current directory: %w", err)
	}

	for _, v := range filesToSave {
		delete(infos, v)
	}

	for fullpath := range infos {
		if err := f.fs.RemoveAll(fullpath); err != nil {
			return fmt.Errorf("cannot remove %s: %w", fullpath, err)
		}
	}

	return nil
}

func (f fsDir) makeChecksum(dir string) (string, error) {
	hasher := sha256.New()
	newFileSign := []byte{0}
	fileContentsSign := []byte{1}
	paths := []string{}

	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		switch {
		case err != nil:
			return err
		case !info.IsDir():
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot traverse directory %s: %w", dir, err)
	}

	sort.Strings(paths)

	for _, path := range paths {
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return "", fmt.Errorf("cannot build a relative path of %s to %s: %w", path, dir, err)
		}

		hasher.Write(newFileSign)                       // nolint: errcheck
		hasher.Write([]byte(filepath.ToSlash(relPath))) // nolint: errcheck
		hasher.Write(fileContentsSign)                  // nolint: errcheck

		if err := f.copyFile(hasher, path); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (f fsDir) copyFile(dst io.Writer, path string) error {
	fp, err := f.fs.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open a file %s: %w", path, err)
	}

	defer fp.Close()

	if _, err := io.Copy(dst, fp); err != nil {
		return fmt.Errorf("cannot copy a file contents of %s: %w", path, err)
	}

	return nil
}

func (f fsDir) readDir() (map[string]os.FileInfo, error) {
	infos, err := afero.ReadDir(f.fs, f.dir)

	switch {
	case os.IsNotExist(err):
		return map[string]os.FileInfo{}, nil
	case err != nil:
		return nil, fmt.Errorf("cannot read dir %s: %w", f.dir, err)
	}

	rv := make(map[string]os.FileInfo, len(infos))

	for _, v := range infos {
		rv[filepath.Join(f.dir, v.Name())] = v
	}

	return rv, nil
}

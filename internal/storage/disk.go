package storage

import (
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a WAL-mode database.
var sqliteSidecars = []string{"-wal", "-shm"}

// SnapshotUsageBytes returns the on-disk size of a snapshot: the vector file,
// the database and its WAL sidecars.
func SnapshotUsageBytes(dbPath, vectorsPath string) (int64, error) {
	paths := []string{vectorsPath, dbPath}
	if dbPath != "" {
		for _, suffix := range sqliteSidecars {
			paths = append(paths, dbPath+suffix)
		}
	}
	return DiskUsageBytes(paths...)
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths contribute 0; other stat or walk errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

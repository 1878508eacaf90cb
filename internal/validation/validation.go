// Package validation checks files named on the command line or in the
// configuration before they are opened.
package validation

import (
	"fmt"
	"os"
)

// InputFile checks that path exists and is a regular file. The returned
// error wraps the underlying os error, so os.ErrNotExist can be tested.
func InputFile(path string) error {
	if path == "" {
		return fmt.Errorf("input file path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input file %s is a directory", path)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("input file %s is not a regular file", path)
	}
	return nil
}

// PrivateFile reports whether a secret file, such as service account
// credentials, is readable or writable by other users.
func PrivateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking %s: %w", path, err)
	}
	return FilePermissions(info.Mode())
}

// FilePermissions rejects modes granting any access to others.
func FilePermissions(mode os.FileMode) error {
	if mode.Perm()&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600 or 0640", mode.Perm().String())
	}
	return nil
}

package checks

import (
	"sort"

	"github.com/spf13/afero"
)

// CheckRoots returns the names of the roots whose directory is missing.
// roots maps a name (e.g. "files.root") to a directory.
func CheckRoots(fs afero.Fs, roots map[string]string) ([]string, error) {
	missing := []string{}
	for name, dir := range roots {
		ok, err := afero.DirExists(fs, dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

package parser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ListFiles returns the files of the given type under root in lexical
// order. A root that is a regular file is returned as is. Subdirectories
// are descended only when recursive is set.
func ListFiles(root string, fileType FileType, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && fileType.Matches(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() && fileType.Matches(e.Name()) {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SourceExt is the extension of Pine Script files picked up from directories.
const SourceExt = ".pine"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ExpandSources resolves command line arguments to absolute source paths.
// Files are taken as given; directories are walked for *.pine files. Each
// path appears once, in argument order.
func ExpandSources(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		full, _, err := GetPathInfo(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(full)
			continue
		}
		err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), SourceExt) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
	}
	return out, nil
}

// Relocate moves path into dir keeping its base name. An empty dir leaves
// path unchanged.
func Relocate(path, dir string) string {
	if dir == "" {
		return path
	}
	return filepath.Join(dir, filepath.Base(path))
}

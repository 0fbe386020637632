package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// mintedPrefix names the directory the minted package caches highlighted
// code in, one per job.
const mintedPrefix = "_minted-"

// AuxFiles expands the job's auxiliary suffixes into the existing files in
// dir, sorted and without duplicates. Suffixes may contain glob characters.
func AuxFiles(dir, job string, suffixes []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, suffix := range suffixes {
		pattern := filepath.Join(dir, job+suffix)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid clean pattern %q: %w", suffix, err)
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	minted := filepath.Join(dir, mintedPrefix+job)
	if _, err := os.Lstat(minted); err == nil && !seen[minted] {
		result = append(result, minted)
	}

	sort.Strings(result)
	return result, nil
}

// removeAll deletes every path, continuing past failures.
func removeAll(paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

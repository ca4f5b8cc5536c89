// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadListFile reads a newline-delimited file list.
//
// Surrounding whitespace is trimmed. Blank lines and lines starting with '#'
// are ignored.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening list file %s: %w", path, err)
	}
	defer f.Close()

	var files []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading list file %s: %w", path, err)
	}
	return files, nil
}

// CollectInputs combines the list file entries with positional paths.
//
// Inputs:
//   - listFile: Optional list file. Empty means none.
//   - positional: Paths given on the command line.
//
// Outputs:
//   - []string: List file entries first, then positional paths.
//   - error: A list file read error, or ErrNoInputFiles when the result is
//     empty.
func CollectInputs(listFile string, positional []string) ([]string, error) {
	var files []string
	if listFile != "" {
		listed, err := ReadListFile(listFile)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}
	for _, p := range positional {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	return files, nil
}

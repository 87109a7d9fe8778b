package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// readSources collects sources from args and, when listPath is set, from a
// list file with one source per line. "-" reads the list from stdin. Blank
// lines and lines starting with '#' are skipped.
func readSources(args []string, listPath string, stdin io.Reader) ([]string, error) {
	srcs := append([]string(nil), args...)
	if listPath == "" {
		return srcs, nil
	}

	r := stdin
	if listPath != "-" {
		f, err := os.Open(listPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open source list: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		srcs = append(srcs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source list: %w", err)
	}
	return srcs, nil
}

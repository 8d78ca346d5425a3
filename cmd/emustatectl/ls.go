// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

// container is one persisted file or directory of a service
type container struct {
	service  string
	name     string
	format   string
	size     int64
	modified time.Time
	digest   string
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <base-dir>",
		Short: "List the persisted services and their containers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer func() { _ = logger.Flush() }()
			return list(cmd.OutOrStdout(), args[0], logger)
		},
	}
}

func list(out io.Writer, baseDir string, logger log.Logger) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", baseDir, err)
	}

	digests := readDigests(baseDir, logger)

	var containers []container
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		found, err := serviceContainers(baseDir, entry.Name(), digests)
		if err != nil {
			return err
		}
		containers = append(containers, found...)
	}

	if len(containers) == 0 {
		_, err := fmt.Fprintln(out, "No persisted state found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tCONTAINER\tFORMAT\tSIZE\tMODIFIED\tDIGEST")
	for _, c := range containers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.service,
			c.name,
			c.format,
			c.size,
			c.modified.Format(time.RFC3339),
			c.digest,
		)
	}
	return w.Flush()
}

// readDigests returns the manifest digests keyed by path relative to the
// base directory. The manifest is optional; a locked manifest, held by a
// running server, is reported and skipped.
func readDigests(baseDir string, logger log.Logger) map[string]uint64 {
	path := filepath.Join(baseDir, manifest.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	m, err := manifest.OpenReadOnly(path)
	if err != nil {
		logger.Warnf("manifest %s unavailable: %v", path, err)
		return nil
	}
	defer func() { _ = m.Close() }()

	entries, err := m.Entries()
	if err != nil {
		logger.Warnf("reading manifest %s: %v", path, err)
		return nil
	}
	digests := make(map[string]uint64, len(entries))
	for _, entry := range entries {
		digests[entry.Key] = entry.Digest
	}
	return digests
}

func serviceContainers(baseDir, service string, digests map[string]uint64) ([]container, error) {
	dir := filepath.Join(baseDir, service)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var containers []container
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		switch {
		case entry.IsDir() && (entry.Name() == "objects" || entry.Name() == "assets"):
			size, modified, err := treeStats(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			containers = append(containers, container{
				service:  service,
				name:     entry.Name(),
				format:   "files",
				size:     size,
				modified: modified,
				digest:   "-",
			})
		case info.Mode().IsRegular() && !strings.HasPrefix(entry.Name(), "."):
			format, ok := serialization.FormatOf(entry.Name())
			if !ok {
				continue
			}
			digest := "-"
			if value, ok := digests[service+"/"+entry.Name()]; ok {
				digest = fmt.Sprintf("%016x", value)
			}
			containers = append(containers, container{
				service:  service,
				name:     strings.TrimSuffix(entry.Name(), format.Extension()),
				format:   format.String(),
				size:     info.Size(),
				modified: info.ModTime(),
				digest:   digest,
			})
		}
	}

	sort.SliceStable(containers, func(i, j int) bool {
		if containers[i].name != containers[j].name {
			return containers[i].name < containers[j].name
		}
		return containers[i].format < containers[j].format
	})
	return containers, nil
}

// treeStats returns the total size and latest modification time below root
func treeStats(root string) (int64, time.Time, error) {
	var (
		size   int64
		latest time.Time
	)
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	return size, latest, err
}

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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var dataOnly bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a persisted document of either format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()
			defer func() { _ = logger.Flush() }()
			return inspect(cmd.OutOrStdout(), args[0], dataOnly, logger)
		},
	}
	cmd.Flags().BoolVar(&dataOnly, "data", false, "print the payload only")
	return cmd
}

func inspect(out io.Writer, path string, dataOnly bool, logger log.Logger) error {
	engine := serialization.NewEngine(serialization.WithLogger(logger))
	envelope, format, err := engine.Inspect(path)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(envelope.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}

	if !dataOnly {
		if _, err := fmt.Fprintf(out, "format:  %s\nversion: %d\ntype:    %s\nshape:   %s\n",
			format, envelope.Version, envelope.Type, envelope.Shape); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, string(payload))
	return err
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

type batchOptions struct {
	dir string
}

// newBatchCommand builds `rapass batch <dir>`: allocate every
// *.json fixture in dir, continuing past per-function failures and
// reporting all of them together -- this is a CLI-level concern, each
// individual RunOnFunction call still aborts immediately per the
// pass's own error-handling contract (see DESIGN.md / SPEC_FULL.md §7).
func newBatchCommand() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Run the allocator against every fixture in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dir = args[0]
			return runBatch(cmd, opts)
		},
	}
	return cmd
}

func runBatch(cmd *cobra.Command, opts batchOptions) error {
	matches, err := filepath.Glob(filepath.Join(opts.dir, "*.json"))
	if err != nil {
		return errors.Wrapf(err, "listing fixtures in %s", opts.dir)
	}
	if len(matches) == 0 {
		return errors.Errorf("no *.json fixtures found in %s", opts.dir)
	}

	var result *multierror.Error
	ok := 0
	for _, path := range matches {
		if err := runBatchOne(cmd, path); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "%s", path))
			continue
		}
		ok++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d fixtures allocated cleanly\n", ok, len(matches))
	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}

func runBatchOne(cmd *cobra.Command, path string) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	program := buildProgram(f)
	arena := regalloc.NewArena()

	pass := regalloc.NewPass(arena, logrus.StandardLogger(), program)
	_, err = pass.RunOnFunction()
	return err
}

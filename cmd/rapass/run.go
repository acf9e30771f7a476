package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brinkqiang2cpp/rapass/internal/regalloc"
)

type runOptions struct {
	fixturePath string
}

// newRunCommand builds `rapass run <fixture.json>`: allocate one
// function and print a summary of the result.
func newRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run FIXTURE",
		Short: "Run the allocator against a single fixture function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.fixturePath = args[0]
			return runOne(cmd, opts)
		},
	}
	return cmd
}

func runOne(cmd *cobra.Command, opts runOptions) error {
	f, err := loadFixture(opts.fixturePath)
	if err != nil {
		return err
	}

	program := buildProgram(f)
	arena := regalloc.NewArena()
	logger := logrus.StandardLogger()

	passOpts := []regalloc.Option{}
	if debugPasses {
		passOpts = append(passOpts, regalloc.WithDebugPasses(regalloc.LogDumpBlocks|regalloc.LogDumpLiveness|regalloc.LogDumpLiveSpans))
	}

	pass := regalloc.NewPass(arena, logger, program, passOpts...)
	result, err := pass.RunOnFunction()
	if err != nil {
		return errors.Wrapf(err, "allocating %s", f.Name)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "function %s: %d blocks (%d reachable), max-live=%d, spills=%d loads=%d moves=%d swaps=%d, frame=%d bytes\n",
		f.Name, result.BlockCount, result.ReachableBlockCount, result.GlobalMaxLiveCount,
		result.SpillCount, result.LoadCount, result.MoveCount, result.SwapCount, result.Frame.TotalSize)
	for _, line := range program.Emitted {
		fmt.Fprintln(cmd.OutOrStdout(), "  "+line)
	}
	return nil
}

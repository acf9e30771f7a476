package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debugPasses bool
	logLevel    string
)

// newRootCommand builds the rapass root command, mirroring the
// subcommand-per-verb shape of moby-moby's api/client cobra commands
// (one NewXCommand per verb, flags bound on construction).
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rapass",
		Short: "Drive the register allocation pass against JSON fixtures",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debugPasses, "debug-passes", false, "enable pass-internal diagnostic dumps")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level (debug, info, warn, error)")

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newBatchCommand())
	return cmd
}

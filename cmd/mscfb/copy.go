package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCopyCmd())
}

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Rebuild a container tree into a fresh, compact file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}
			copied, err := file.Copy()
			if err != nil {
				return fmt.Errorf("failed to copy %s: %w", args[0], err)
			}
			return saveFile(copied, args[1])
		},
	}
}

package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCatCmd())
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file> <stream>",
		Short: "Write a stream's payload to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}
			stream, err := file.OpenStream(args[1])
			if err != nil {
				return err
			}
			_, err = stream.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

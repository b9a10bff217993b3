package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Validate a container and report its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}
			info := file.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", args[0])
			fmt.Fprintf(out, "  Major version:      %d\n", info.Version)
			fmt.Fprintf(out, "  CLSID:              %s\n", info.CLSID)
			fmt.Fprintf(out, "  Sectors:            %d\n", info.NumSectors)
			fmt.Fprintf(out, "  FAT sectors:        %d\n", info.NumFatSectors)
			fmt.Fprintf(out, "  DIFAT sectors:      %d\n", info.NumDifatSectors)
			fmt.Fprintf(out, "  MiniFAT sectors:    %d\n", info.NumMinifatSectors)
			fmt.Fprintf(out, "  Directory entries:  %d\n", info.NumDirEntries)
			fmt.Fprintf(out, "  Mini stream:        %d bytes\n", info.MiniStreamLen)
			fmt.Fprintf(out, "  Mini stream cutoff: %d bytes\n", info.MiniStreamCutoff)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/asalih/go-cfbf/internal/codec"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	var sector int
	cmd := &cobra.Command{
		Use:   "dump <file> [stream]",
		Short: "Hex dump a stream, or a raw sector with --sector",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}

			var data []byte
			switch {
			case sector >= 0:
				if data, err = file.SectorData(uint32(sector)); err != nil {
					return err
				}
			case len(args) == 2:
				stream, err := file.StreamEntry(args[1])
				if err != nil {
					return err
				}
				if stream.Size() > 0 {
					if data, err = stream.Data(); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("nothing to dump: give a stream path or --sector")
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), codec.Dump(data))
			return err
		},
	}
	cmd.Flags().IntVar(&sector, "sector", -1, "Dump the raw sector at this position")
	return cmd
}

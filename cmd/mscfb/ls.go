package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asalih/go-cfbf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls <file> [path]",
		Short: "List the storage tree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}
			prefix := "/"
			if len(args) == 2 {
				entry, err := file.Entry(args[1])
				if err != nil {
					return err
				}
				prefix = entry.Path
			}

			out := cmd.OutOrStdout()
			var rows [][]string
			err = file.Walk(func(e *mscfb.Entry) error {
				if !underPath(e.Path, prefix) {
					return nil
				}
				if !long {
					fmt.Fprintln(out, e.Path)
					return nil
				}
				rows = append(rows, []string{
					e.ObjType.String(),
					strconv.FormatUint(e.StreamLen, 10),
					e.ModifiedTime.Format("2006-01-02 15:04:05"),
					e.Path,
				})
				return nil
			})
			if err != nil {
				return err
			}
			if long {
				printTable(out, []string{"Kind", "Size", "Modified", "Path"}, rows)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show kind, size and modification time")
	return cmd
}

func underPath(path, prefix string) bool {
	if prefix == "/" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

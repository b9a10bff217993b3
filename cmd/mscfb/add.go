package main

import (
	"errors"
	"fmt"

	"github.com/asalih/go-cfbf"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newAddCmd())
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			file, err := mscfb.New(opts...)
			if err != nil {
				return err
			}
			return saveFile(file, args[0])
		},
	}
}

func newAddCmd() *cobra.Command {
	var storage bool
	cmd := &cobra.Command{
		Use:   "add <file> <path> [source]",
		Short: "Add a stream (from source, or empty) or a storage",
		Long: `The add command creates missing parent storages, then adds the last
path element as a stream holding the source file's bytes, or as a storage
with --storage. The container is rewritten in place.

Example:
  mscfb add data.cfb /Docs/Readme readme.txt
  mscfb add data.cfb /Docs/Images --storage`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openFile(args[0])
			if err != nil {
				return err
			}

			names := mscfb.NameChainFromPath(args[1])
			if len(names) == 0 {
				return fmt.Errorf("path %q names the root: %w", args[1], mscfb.ErrorInvalidName)
			}
			parent, err := ensureStorages(file, names[:len(names)-1])
			if err != nil {
				return err
			}

			name := names[len(names)-1]
			if storage {
				if _, err := parent.AddStorage(name); err != nil {
					return err
				}
			} else {
				var data []byte
				if len(args) == 3 {
					if data, err = readFile(args[2]); err != nil {
						return err
					}
				}
				if _, err := parent.AddStream(name, data); err != nil {
					return err
				}
			}
			return saveFile(file, args[0])
		},
	}
	cmd.Flags().BoolVar(&storage, "storage", false, "Add a storage instead of a stream")
	return cmd
}

// ensureStorages walks names from the root, creating storages that do not
// exist yet.
func ensureStorages(file *mscfb.CompoundFile, names []string) (*mscfb.Storage, error) {
	root, err := file.RootStorage()
	if err != nil {
		return nil, err
	}
	current := root.Storage
	for i, name := range names {
		next, err := file.Storage(mscfb.PathFromNameChain(names[:i+1]))
		switch {
		case err == nil:
			current = next
		case errors.Is(err, mscfb.ErrorNotFound):
			if current, err = current.AddStorage(name); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}
	return current, nil
}

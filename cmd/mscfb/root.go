package main

import (
	"fmt"
	"os"

	"github.com/asalih/go-cfbf"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
	strict  bool
)

var rootCmd = &cobra.Command{
	Use:   "mscfb",
	Short: "Inspect and build compound binary (OLE2) files",
	Long: `mscfb reads, lists, extracts and builds Compound File Binary
containers such as legacy .doc, .xls and .msi files.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log allocation and load details to stderr")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Reject files with inconsistent counters or name ordering")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func options() ([]mscfb.Option, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	validation := mscfb.ValidationPermissive
	if strict {
		validation = mscfb.ValidationStrict
	}
	return []mscfb.Option{mscfb.WithLogger(log), mscfb.WithValidation(validation)}, nil
}

// readFile reads path after expanding a leading ~.
func readFile(path string) ([]byte, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(expanded)
}

// openFile loads the container at path.
func openFile(path string) (*mscfb.CompoundFile, error) {
	opts, err := options()
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	file, err := mscfb.FromBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// saveFile writes the container to path.
func saveFile(file *mscfb.CompoundFile, path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	out, err := os.Create(expanded)
	if err != nil {
		return err
	}
	if _, err := file.WriteTo(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

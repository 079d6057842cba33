package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "archivist",
	Short: "archivist - archive, verify and clean local files against object storage",
	Long: `archivist moves data off local disks in three separate steps.

  archive  uploads files and records the store's digest next to each one
  verify   recomputes local digests and writes a verification report
  clean    deletes only the files the report marks as verified`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"baniusync/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "baniusync [paths...]",
	Short: "Upload local files and directories to an object storage bucket",
	Long: `Upload local files and directories to an object storage bucket.

Files selected directly are stored under their base name. Files inside a
selected directory keep the directory name, so uploading /srv/site stores
/srv/site/css/a.css as "site/css/a.css". An optional prefix is prepended
to every key. Ten workers upload in parallel.`,
	SilenceUsage: true,
	RunE:         runUpload,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	config.RegisterFlags(rootCmd.PersistentFlags())
	addUploadFlags(rootCmd)

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

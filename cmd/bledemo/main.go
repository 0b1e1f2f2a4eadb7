package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bledemo",
	Short: "GATT peripheral demo on the simulated stack",
	Long: `Runs a GATT server with a static, a notifying and a writable
characteristic on the in-memory stack, then drives it with a scripted
peer: connect, discover, subscribe, and watch the counter notifications
arrive.

Useful for exploring the server API without BLE hardware.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

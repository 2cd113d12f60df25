package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), "%s", errorMessage(err))
		os.Exit(exitCode(err))
	}
}

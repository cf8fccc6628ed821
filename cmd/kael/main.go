package main

import (
	"fmt"
	"os"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/securemem"
)

func main() {
	securemem.Init()
	err := rootCmd.Execute()
	if err != nil {
		logger.Error("Fatal error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if closeErr := logger.Global().Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
	}
	securemem.Cleanup()
	if err != nil {
		os.Exit(1)
	}
}

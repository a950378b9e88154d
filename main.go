package main

import (
	"fmt"
	"os"
	"submerger/cmd"
	"submerger/config"
	"submerger/logger"
)

func main() {
	cfgPaths := config.GetDefaultConfigPaths()
	if err := logger.InitGlobalLogger(cfgPaths.LogPath, cfgPaths.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize default global logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseLogFile()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic recovered in main: %v\n", r)
			logger.CloseLogFile()
			os.Exit(1)
		}
	}()

	cmd.Execute()
}

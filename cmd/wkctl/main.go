package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/hlong026/WeKnow-design/internal/logutil"
	"github.com/hlong026/WeKnow-design/internal/wkcli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env next to the binary supplies WEKNORA_* defaults in development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logutil.Warn("failed to read .env", err, nil)
	}
	if err := wkcli.Execute(); err != nil {
		os.Exit(1)
	}
}

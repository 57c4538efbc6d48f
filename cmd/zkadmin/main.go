package main

import (
	"os"

	"github.com/zkevm-ops/zkadmin/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}

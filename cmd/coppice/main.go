package main

import (
	"os"

	"github.com/oakhill/coppice/internal/cli/commands"
	"github.com/oakhill/coppice/internal/cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

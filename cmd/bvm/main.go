package main

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/bvm/internal/app"
	"github.com/blackwell-systems/bvm/internal/output"
)

func main() {
	if err := app.Execute(); err != nil {
		if !output.PrintError(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

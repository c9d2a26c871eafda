// Command sustainet is the terminal client of the Sustainet game.
package main

import (
	"os"

	"github.com/sustainet/sustainet/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

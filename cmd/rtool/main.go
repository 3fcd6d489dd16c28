// Command rtool builds, freezes, publishes and tags releases of a family of Python projects.
package main

import (
	"os"

	"rtool/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}

package main

import (
	"os"

	"github.com/hashicorp-forge/workbench/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}

package main

import (
	"os"

	"github.com/eschaton/MINIXCompat/cmd/minixcompat/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}

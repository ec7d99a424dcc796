package main

import (
	"os"

	"github.com/OpenTraceLab/klcheck/cmd/klc/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

package main

import (
	"os"

	"github.com/sahib/catio/cmdline"
)

func main() {
	os.Exit(cmdline.RunCmdline(os.Args))
}

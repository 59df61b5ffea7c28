package main

import (
	"github.com/domeara/becool/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

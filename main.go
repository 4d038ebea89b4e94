package main

import (
	_ "github.com/nixel-lang/nixel/builtins"
	"github.com/nixel-lang/nixel/cmd"
)

var version = "v0.4.1"

func main() {
	cmd.Execute(version)
}

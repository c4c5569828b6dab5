package main

import (
	"os"

	"dreammover/cmd/dreammover/commands"
)

func main() {
	os.Exit(commands.Execute())
}

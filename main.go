package main

import (
	"os"

	"github.com/apitester/runtests/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

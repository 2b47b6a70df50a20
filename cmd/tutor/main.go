package main

import (
	"fmt"
	"os"

	"github.com/kilofrakh/mostaqlproj1/cmd/tutor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

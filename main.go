package main

import (
	"github.com/sidkik/syncbox/cmd"
	"github.com/sidkik/syncbox/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}

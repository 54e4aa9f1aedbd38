package main

import (
	"github.com/materials-commons/depot/cmd/depotd/cmd"
)

func main() {
	cmd.Execute()
}

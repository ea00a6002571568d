// # cmd/ploc/main.go
package main

import (
	"os"

	"ploc/internal/ui/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}

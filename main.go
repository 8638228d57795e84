package main

import "github.com/deploymenttheory/go-fwtrace/cmd"

func main() {
	cmd.Execute()
}

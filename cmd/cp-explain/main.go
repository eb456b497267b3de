package main

import "github.com/alepiz/counterprocessor/cmd/cp-explain/cmd"

func main() {
	cmd.Execute()
}

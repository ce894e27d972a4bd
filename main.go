package main

import "github.com/kiesman99/relief/cmd"

func main() {
	cmd.Execute()
}

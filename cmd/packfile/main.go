package main

import "github.com/strategos/packfile/cmd/packfile/cmd"

func main() {
	cmd.Execute()
}

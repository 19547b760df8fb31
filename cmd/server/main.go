package main

import "github.com/campus-life-events/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}

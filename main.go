package main

import "github.com/termbridge/termbridge/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/rodriseer/surfseer/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/lepinkainen/readtube/cmd"

var execute = cmd.Execute

func main() {
	execute()
}

package main

import "github.com/ostanik/parget/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Rorical/RoriTable/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/GZTimeWalker/berry-pasty/cmd/berry-pasty/cmd"

func main() {
	cmd.Execute()
}

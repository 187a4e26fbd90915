package main

import "dirsync/cmd"

func main() {
	cmd.Execute()
}

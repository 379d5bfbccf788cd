package main

import "paneterm/cmd"

func main() {
	cmd.Execute()
}

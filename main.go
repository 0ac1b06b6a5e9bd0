package main

import "kdindex/cmd"

func main() {
	cmd.Execute()
}

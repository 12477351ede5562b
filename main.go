package main

import "formscan/cmd"

func main() {
	cmd.Execute()
}

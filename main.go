package main

import "ipocket/cmd"

func main() {
	cmd.Execute()
}

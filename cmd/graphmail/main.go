package main

import "graphmail/internal/cli"

func main() {
	cli.Execute()
}

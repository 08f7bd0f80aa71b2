package main

import "runtrack/cmd/cli"

func main() {
	cli.Execute()
}

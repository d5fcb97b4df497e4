package main

import "topflow/internal/cli"

func main() {
	cli.Execute()
}

package main

import "buildpack/internal/cli"

func main() {
	cli.Execute()
}

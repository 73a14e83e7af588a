package main

import "datapipe/internal/cli"

func main() {
	cli.Execute()
}

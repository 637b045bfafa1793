package main

import "github.com/mcoot/rummy-tracker/internal/cli"

func main() {
	cli.Execute()
}

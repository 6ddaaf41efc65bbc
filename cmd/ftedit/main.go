package main

import "github.com/forPelevin/ftedit/internal/cli"

func main() {
	cli.Main()
}

package main

import "torrentstream/streamresolver/internal/cli"

func main() {
	cli.Execute()
}

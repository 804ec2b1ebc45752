package main

import "github.com/rustyeddy/polygate/internal/cli"

func main() {
	cli.Execute()
}

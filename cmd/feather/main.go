package main

import "github.com/BolvicBolvicovic/feather/internal/cli"

func main() {
	cli.Execute()
}

package main

import "flow-ai/chatsync/internal/cli"

func main() {
	cli.Execute()
}

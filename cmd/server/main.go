package main

import (
	"os"

	"flow-ai/chatsync/internal/app"
)

func main() {
	os.Exit(app.Run())
}

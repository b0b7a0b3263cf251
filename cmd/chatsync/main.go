package main

import "relove-chat/cmd/chatsync/cmd"

func main() {
	cmd.Execute()
}

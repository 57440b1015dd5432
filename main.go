package main

import "github.com/hubchat/server/cmd"

func main() {
	cmd.Execute()
}

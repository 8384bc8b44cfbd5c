package main

import "github.com/RyanBlaney/channel-detector/cmd"

func main() {
	cmd.Execute()
}

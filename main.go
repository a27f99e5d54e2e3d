package main

import "github.com/0x-stone/clauseguard/cmd"

func main() {
	cmd.Execute()
}

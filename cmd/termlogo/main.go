package main

import "github.com/blacktop/go-termlogo/cmd/termlogo/cmd"

func main() {
	cmd.Execute()
}

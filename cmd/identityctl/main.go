package main

import "github.com/MrEthical07/goIdentity/cmd/identityctl/cmd"

func main() {
	cmd.Execute()
}

package main

import "sui-signer/cmd/sui-signer/cmd"

func main() {
	cmd.Execute()
}

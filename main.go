package main

import (
	"testnet-faucet/internal/cli"
)

func main() {
	cli.Execute()
}

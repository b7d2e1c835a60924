package main

import (
	"log"

	substrate "github.com/hyperledger-labs/beefy-relayer/chains/substrate/module"
	"github.com/hyperledger-labs/beefy-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		substrate.Module{},
	); err != nil {
		log.Fatal(err)
	}
}

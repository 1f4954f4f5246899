package main

import (
	"log"

	"linkchain/cmd/lc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}

package main

import "github.com/Azure/cosmosdb-emulator-recipes/cmd"

func main() {
	cmd.Execute()
}

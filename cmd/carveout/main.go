package main

import "carveout/cmd/carveout/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/regattahq/raceboard/cmd/raceboard/commands"

func main() {
	commands.Execute()
}

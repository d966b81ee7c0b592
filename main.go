package main

import "github.com/mt4110/segcut/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/example/tablesched/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/qobs-build/bearmake/cmd"

func main() {
	cmd.Execute()
}

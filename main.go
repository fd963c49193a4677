package main

import "mycelica/folio/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/evolvedge/evolvedge/cmd/evolvedge/root"

func main() {
	root.Execute()
}

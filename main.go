package main

import "mlprep/cmd"

func main() {
	cmd.Execute()
}

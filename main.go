package main

import "swarmsettings/cmd"

func main() {
	cmd.Execute()
}

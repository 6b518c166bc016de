package main

import "github.com/KaramelBytes/scorecorr-cli/cmd"

func main() {
	cmd.Execute()
}

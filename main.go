package main

import "github.com/jfmyers9/spotilocal/cmd"

func main() {
	cmd.Execute()
}

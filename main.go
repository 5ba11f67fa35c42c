package main

import "github.com/campusmess/mess-server/cmd"

func main() {
	cmd.Execute()
}

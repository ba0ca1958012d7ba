package main

import "github.com/josephlewis42/grsh/cmd"

func main() {
	cmd.Execute()
}

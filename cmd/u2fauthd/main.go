package main

import "github.com/solokeys-go/u2fauth/cmd/u2fauthd/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/dukerupert/certadmin/cmd"

func main() {
	cmd.Execute()
}

package main

import "go-school-admin/cmd/schoolctl/commands"

func main() {
	commands.Execute()
}

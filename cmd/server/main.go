package main

import "github.com/gekko-logistics/waybills-server/cmd/server/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Doaky/pi-alarm-block/cmd/alarm-block/cmd"

func main() {
	cmd.Execute()
}

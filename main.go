package main

import "github.com/dangyogi/music-player/cmd"

func main() {
	cmd.Execute()
}

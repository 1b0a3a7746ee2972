package main

import "github.com/yatsu/githubstat/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KaramelBytes/docloom-insights/cmd"

func main() {
	cmd.Execute()
}

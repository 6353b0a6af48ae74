package main

import "github.com/lbansal/face-attendance/cmd"

func main() {
	cmd.Execute()
}

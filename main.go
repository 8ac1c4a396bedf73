package main

import (
	"log"
	"os"

	"github.com/thiagokokada/gitmon-go/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Printf("gitmon: %v", err)
		os.Exit(cmd.ExitCode(err))
	}
}

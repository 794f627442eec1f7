package main

import (
	"crypto-bob-alerts/internal/cli"
)

func main() {
	cli.Execute()
}

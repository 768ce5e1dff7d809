// Package main is the entry point for stock-monitor.
package main

import "github.com/donaldgifford/stock-monitor/cmd/stock-monitor/cmd"

func main() {
	cmd.Execute()
}

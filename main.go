// Package main is the entry point for the volley application.
package main

import "github.com/billie-coop/volley/cmd"

func main() {
	cmd.Execute()
}

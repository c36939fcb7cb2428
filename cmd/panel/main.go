// Command panel is the terminal client for the media platform admin API.
package main

import (
	"context"
	"os"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// Package main provides the enroller command, which watches a course for an
// open seat and registers for it through the university portal.
package main

import "os"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(Execute(version))
}

package main

import (
	"conventest/cmd"
	"conventest/internal/samples"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.SetModule(samples.Module())
	cmd.SetConvention(samples.Convention())
	cmd.Execute()
}

// Command launchpad is the developer-environment manager's CLI: dev,
// dev:shellcode, install, update/up, upgrade (self), clean, and services.
// Grounded on malbeclabs-doublezero/e2e/internal/devnet/cmd's root.go — a
// cobra.Command tree assembled in one Run(), persistent flags read back
// out of cmd.Root() by each subcommand.
package main

import (
	"os"

	launchpadcmd "github.com/home-lang/pantry-sub000/cmd/launchpad/internal/cmd"
)

func main() {
	os.Exit(int(launchpadcmd.Run()))
}

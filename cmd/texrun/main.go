// texrun - LaTeX build runner
//
// texrun compiles a LaTeX document with its bibliography and reruns, and
// condenses the engine log into errors, warnings and typesetting issues.
package main

import (
	"os"

	"github.com/ccollicutt/texrun/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// The main package for the pagewatch executable.
package main

import (
	"github.com/plexfield/pagewatch/cmd"
)

func main() {
	cmd.Execute()
}

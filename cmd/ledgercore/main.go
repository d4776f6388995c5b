// Command ledgercore is the entry point for the ledgercore command-line
// tool. It sets up the subcommand system, registers every built-in command,
// and executes whichever one the user asked for.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path"

	"github.com/colinmarsh/ledgercore/cmd"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cmd.Register(commander)

	flag.Parse()

	if !*cmd.Verbose {
		log.SetOutput(io.Discard)
	}

	os.Exit(int(commander.Execute(context.Background())))
}

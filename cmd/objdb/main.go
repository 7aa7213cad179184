// Package main implements the command-line tool of the object database. It
// manages a reward queue persisted in a key/value database.
//
// Unix example:
//
//	# Submit 10 cycles for the account 1.2.4
//	objdb queue submit --account 4 --amount 10
//
//	# Distribute up to 100 cycles in time order
//	objdb queue distribute --budget 100
//
// The database, the backend and the log level are read from the file of the
// --config flag, and from the OBJDB_* and LLVL environment variables.
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/objdb/chain/rewardqueue/controller"
	"go.dedis.ch/objdb/cli/ucli"
)

func main() {
	err := run(os.Args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	ctrl := controller.NewController(out)

	builder := ucli.NewBuilder("objdb", nil, ctrl.Flags()...)
	builder.SetUsage("indexed object database of the reward queue")

	ctrl.SetCommands(builder)

	return builder.Build().Run(args)
}

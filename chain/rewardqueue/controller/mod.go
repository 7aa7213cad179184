// Package controller implements the commands of the reward queue tool.
//
// Every command loads the queue from the snapshot in the database. The
// commands that modify the queue run in a session that is committed only once
// the new snapshot is written, so that a failure leaves both the queue and the
// database unchanged.
package controller

import (
	"io"
	"time"

	"go.dedis.ch/objdb/cli"
)

const (
	configFlag = "config"

	accountFlag   = "account"
	amountFlag    = "amount"
	frequencyFlag = "frequency"
	originFlag    = "origin"
	licenseFlag   = "license"
	timeFlag      = "time"
	commentFlag   = "comment"
	fromFlag      = "from"
	toFlag        = "to"
	idFlag        = "id"
	budgetFlag    = "budget"
)

// Controller registers the commands of the tool.
type Controller struct {
	out io.Writer
	now func() time.Time
}

// NewController returns a controller that prints the results to the writer.
func NewController(out io.Writer) Controller {
	return Controller{
		out: out,
		now: time.Now,
	}
}

// Flags returns the global flags of the tool.
func (c Controller) Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:    configFlag,
			Usage:   "path to the YAML configuration file",
			EnvVars: []string{"OBJDB_CONFIG"},
		},
	}
}

// SetCommands implements the commands of the tool in the builder.
func (c Controller) SetCommands(builder cli.Builder) {
	queue := builder.SetCommand("queue")
	queue.SetDescription("manage the reward queue")

	sub := queue.SetSubCommand("submit")
	sub.SetDescription("submit cycles to the queue")
	sub.SetFlags(
		cli.Uint64Flag{
			Name:     accountFlag,
			Usage:    "sequence of the account",
			Required: true,
		},
		cli.Int64Flag{
			Name:     amountFlag,
			Usage:    "amount of cycles",
			Required: true,
		},
		cli.IntFlag{
			Name:  frequencyFlag,
			Usage: "frequency of the cycles",
			Value: 100,
		},
		cli.StringFlag{
			Name:  originFlag,
			Usage: "origin of the cycles",
			Value: "user_submit",
		},
		cli.Uint64Flag{
			Name:  licenseFlag,
			Usage: "sequence of the license of chartered cycles",
		},
		cli.StringFlag{
			Name:  timeFlag,
			Usage: "RFC 3339 time of the submission, now by default",
		},
		cli.StringFlag{
			Name:  commentFlag,
			Usage: "comment of the submission",
		},
	)
	sub.SetAction(c.submit)

	sub = queue.SetSubCommand("list")
	sub.SetDescription("list the entries in time order")
	sub.SetFlags(
		cli.Uint64Flag{
			Name:  accountFlag,
			Usage: "only the entries of the account",
		},
		cli.StringFlag{
			Name:  fromFlag,
			Usage: "RFC 3339 lower bound of the time",
		},
		cli.StringFlag{
			Name:  toFlag,
			Usage: "RFC 3339 upper bound of the time",
		},
	)
	sub.SetAction(c.list)

	sub = queue.SetSubCommand("remove")
	sub.SetDescription("remove an entry")
	sub.SetFlags(cli.StringFlag{
		Name:     idFlag,
		Usage:    "identity of the entry, like 2.9.0",
		Required: true,
	})
	sub.SetAction(c.remove)

	sub = queue.SetSubCommand("distribute")
	sub.SetDescription("remove the oldest entries that fit in the budget")
	sub.SetFlags(cli.Int64Flag{
		Name:     budgetFlag,
		Usage:    "amount of cycles to distribute",
		Required: true,
	})
	sub.SetAction(c.distribute)

	schema := builder.SetCommand("schema")
	schema.SetDescription("print the schema of the entries")
	schema.SetAction(c.schema)
}

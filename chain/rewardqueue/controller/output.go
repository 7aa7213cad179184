package controller

import (
	"fmt"

	"github.com/fatih/color"
	"go.dedis.ch/objdb/chain/rewardqueue"
)

var (
	ident   = color.New(color.FgCyan).SprintFunc()
	kind    = color.New(color.FgMagenta).SprintFunc()
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	cycles  = color.New(color.FgYellow).SprintFunc()
)

func amount(value int64) string {
	return cycles(fmt.Sprintf("%d cycles", value))
}

func formatEntry(e rewardqueue.Entry) string {
	line := fmt.Sprintf("%s #%d %s %s at %s freq %d sum %d",
		ident(e.ID), e.Number, ident(e.Account), amount(e.Amount),
		e.Time.UTC().Format("2006-01-02T15:04:05"), e.Frequency, e.HistoricSum)

	line += " " + string(e.Origin)
	if e.License != nil {
		line += " " + ident(*e.License)
	}

	if e.Comment != "" {
		line += fmt.Sprintf(" %q", e.Comment)
	}

	return line
}

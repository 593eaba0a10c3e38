package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) recompute() error {
	totals, err := cli.workSvc.RecomputeAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("works: %d, completed: %d, doing: %d, not yet started: %d\n",
		totals.TotalWorks, totals.Completed, totals.Doing, totals.NotYetStarted)
	return nil
}

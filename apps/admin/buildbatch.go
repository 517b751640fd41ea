package main

import (
	"fmt"
	"time"
)

// buildBatch runs the clothing-order batching from the terminal, for the
// cron job and for staff without portal access.
func (cli *commandLine) buildBatch(cutoff time.Time) error {
	b, err := cli.ordSvc.BuildBatch(cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Batch #%d created: %d orders (cutoff %s)\n", b.Number, len(b.OrderIDs), b.Cutoff.Format(time.RFC3339))
	return nil
}

package main

import (
	"fmt"

	"github.com/reedham/tether/pkg/engine"
	"github.com/reedham/tether/pkg/tetherdir"
)

// runSessions lists saved sessions, newest first, or deletes one when rmID is
// set. It reads the store directly so it works without a valid provider config.
func runSessions(tetherDirPath, rmID string) error {
	store := engine.NewStore(tetherdir.New(tetherDirPath).SessionsDir())

	if rmID != "" {
		if err := store.Delete(rmID); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", rmID)
		return nil
	}

	recs, err := store.List()
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	fmt.Printf("%-36s  %-16s  %8s  %s\n", "ID", "AGENT", "MESSAGES", "UPDATED")
	for _, rec := range recs {
		count := 0
		if rec.Chat != nil {
			count = rec.Chat.Len()
		}
		fmt.Printf("%-36s  %-16s  %8d  %s\n",
			rec.ID, rec.Agent, count, rec.Updated.Format("2006-01-02 15:04"))
	}

	return nil
}

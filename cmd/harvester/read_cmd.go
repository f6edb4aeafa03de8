package main

import (
	"fmt"
	"os"
)

func runRead(env *env, args []string) error {
	defer env.close()

	if len(args) != 2 {
		return fmt.Errorf("usage: harvester read SOURCE_ID ITEM_ID")
	}
	sourceID, itemID := args[0], args[1]

	path := env.store.ContentPath(sourceID, itemID)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", sourceID, itemID, err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

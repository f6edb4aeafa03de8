package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

func runSqlite(env *env, args []string) error {
	defer env.close()

	if len(args) == 0 || args[0] != "rebuild" {
		return fmt.Errorf("usage: harvester sqlite rebuild [--json]")
	}

	fs := flag.NewFlagSet("sqlite rebuild", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the rebuild result as JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	upserted, err := env.idx.Rebuild(env.store, env.registry.List(true))
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"records_upserted": upserted, "path": env.idx.Path()})
	}

	fmt.Printf("rebuilt %s: %d record(s)\n", env.idx.Path(), upserted)
	return nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

func runSources(env *env, args []string) error {
	defer env.close()

	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print sources as a JSON array")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := env.registry.List(true)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	for _, src := range list {
		status := "enabled"
		if !src.Enabled {
			status = "disabled"
		}
		fmt.Printf("%-24s %-12s %-8s %-6s %s\n", src.ID, src.Kind, src.Transport, status, src.URL)
	}
	return nil
}

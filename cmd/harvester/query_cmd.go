package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"content-harvest/internal/entity"
)

func runQuery(env *env, args []string) error {
	defer env.close()

	if len(args) == 0 {
		return fmt.Errorf("usage: harvester query source|keyword|archive ...")
	}

	switch args[0] {
	case "source":
		return queryBySource(env, args[1:])
	case "keyword":
		return queryByKeyword(env, args[1:])
	case "archive":
		return queryByArchive(env, args[1:])
	default:
		return fmt.Errorf("unknown query kind %q", args[0])
	}
}

func queryBySource(env *env, args []string) error {
	fs := flag.NewFlagSet("query source", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum records returned")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: harvester query source SOURCE_ID [--limit N] [--json]")
	}

	records, err := env.engine.BySource(fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	return printRecords(records, *asJSON)
}

func queryByKeyword(env *env, args []string) error {
	fs := flag.NewFlagSet("query keyword", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum records returned")
	sourceIDs := fs.String("sources", "", "comma-separated list of source ids to restrict to")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: harvester query keyword WORD [--sources a,b] [--limit N] [--json]")
	}

	records, err := env.engine.ByKeyword(fs.Arg(0), splitCSV(*sourceIDs), *limit)
	if err != nil {
		return err
	}
	return printRecords(records, *asJSON)
}

func queryByArchive(env *env, args []string) error {
	fs := flag.NewFlagSet("query archive", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum records returned")
	sourceIDs := fs.String("sources", "", "comma-separated list of source ids to restrict to")
	asJSON := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var records []entity.Record
	var err error
	switch fs.NArg() {
	case 1:
		records, err = env.engine.ByArchiveDateOn(fs.Arg(0), splitCSV(*sourceIDs), *limit)
	case 2:
		records, err = env.engine.ByArchiveDate(fs.Arg(0), fs.Arg(1), splitCSV(*sourceIDs), *limit)
	default:
		return fmt.Errorf("usage: harvester query archive ON | START END [--sources a,b] [--limit N] [--json]")
	}
	if err != nil {
		return err
	}
	return printRecords(records, *asJSON)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printRecords(records []entity.Record, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	for _, r := range records {
		fmt.Printf("%-24s %-10s %s\n", r.SourceID, r.ItemID, r.Title)
	}
	return nil
}

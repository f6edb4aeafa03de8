// Command harvester drives the content-harvest pipeline: it wires the
// source registry, extractor, storage, index and query engine together and
// exposes them as a small subcommand CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	env := newEnv()
	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(env, os.Args[2:])
	case "sources":
		err = runSources(env, os.Args[2:])
	case "read":
		err = runRead(env, os.Args[2:])
	case "sqlite":
		err = runSqlite(env, os.Args[2:])
	case "query":
		err = runQuery(env, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: harvester <command> [flags]

commands:
  ingest [--source ID]        run an ingest pass over every (or one) source
  sources [--json]            list configured sources
  read SOURCE_ID ITEM_ID      print one archived item's Markdown content
  sqlite rebuild [--json]     rebuild the relational query index
  query source|keyword|archive ...   query the archived corpus`)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/codanna/codanna/internal/query"
)

// printEnvelope renders an Envelope the way every subcommand reports its
// result: JSON when --json is set (machine-consumable, spec.md §6's exact
// shape), otherwise a short human summary plus the guidance line, which
// spec.md §8 requires is never empty.
func printEnvelope(env query.Envelope) {
	if flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(env)
		return
	}

	switch env.Status {
	case query.StatusOK:
		fmt.Printf("%v\n", env.Data)
	case query.StatusNotFound:
		fmt.Println("not found")
	default:
		fmt.Fprintf(os.Stderr, "error: %s\n", env.Error)
	}
	fmt.Printf("guidance: %s\n", env.Guidance)
}

// exitFor prints env and exits with the envelope's fixed status->exit-code
// mapping (0 ok, 1 error, 3 not_found).
func exitFor(env query.Envelope) {
	printEnvelope(env)
	os.Exit(env.Status.ExitCode())
}

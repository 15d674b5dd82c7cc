// Command ttmctl is the taxonomy time machine's CLI: the thin adapter
// spec.md §1 treats as an external collaborator, translating flags into
// query-engine/ingester calls and printing JSON.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, types.ErrMalformedInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

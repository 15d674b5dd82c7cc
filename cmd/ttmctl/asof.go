package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

var whenParser = newWhenParser()

func newWhenParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseAsOf resolves a CLI-supplied --as-of value. An empty string means
// "no filter" (spec.md §6). It first tries strict ISO-8601, the core
// contract's required format, then falls back to a natural-language parse
// ("yesterday", "3 months ago") as a CLI-only convenience — the engine
// itself never sees anything but a resolved time.Time, keeping the
// ambiguity entirely at this adapter boundary (spec.md §7).
func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	result, err := whenParser.Parse(raw, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: could not parse --as-of %q: %v", types.ErrMalformedInput, raw, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("%w: could not parse --as-of %q", types.ErrMalformedInput, raw)
	}
	return result.Time, nil
}

package main

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// eventJSON renders one event as a JSON object, built incrementally with
// sjson rather than a struct tag round-trip — handy here because several
// fields are conditionally present (Delete events carry no name/rank, and a
// parent only when one was known), and each optional key is set only when
// its field is non-nil.
func eventJSON(ev types.Event) (string, error) {
	js := "{}"
	var err error
	for _, set := range []struct {
		path string
		val  any
	}{
		{"event_kind", string(ev.Kind)},
		{"tax_id", string(ev.TaxID)},
		{"source_id", ev.SourceID},
		{"version_date", ev.VersionDate.Format("2006-01-02T15:04:05")},
	} {
		js, err = sjson.Set(js, set.path, set.val)
		if err != nil {
			return "", err
		}
	}
	if ev.ParentID != nil {
		if js, err = sjson.Set(js, "parent_id", string(*ev.ParentID)); err != nil {
			return "", err
		}
	}
	if ev.Rank != nil {
		if js, err = sjson.Set(js, "rank", *ev.Rank); err != nil {
			return "", err
		}
	}
	if ev.Name != nil {
		if js, err = sjson.Set(js, "name", *ev.Name); err != nil {
			return "", err
		}
	}
	return js, nil
}

// printEvents renders a slice of events as a JSON array to stdout.
func printEvents(events []types.Event) error {
	arr := "[]"
	for i, ev := range events {
		obj, err := eventJSON(ev)
		if err != nil {
			return err
		}
		arr, err = sjson.SetRaw(arr, fmt.Sprintf("%d", i), obj)
		if err != nil {
			return err
		}
	}
	fmt.Println(gjson.Parse(arr).String())
	return nil
}

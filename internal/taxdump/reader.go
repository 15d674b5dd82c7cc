// Package taxdump is a reference implementation of the "external"
// snapshot reader spec.md §6 describes: given one taxdump directory it
// parses NCBI-style nodes.dmp/names.dmp/merged.dmp and exposes taxa as an
// iterator plus random access. The real production parser is explicitly
// out of this repo's scope; this package exists so the ingester has a
// concrete collaborator to run against in tests and standalone CLI use.
package taxdump

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

// Reader iterates one snapshot directory's taxa.
type Reader struct {
	nodes       map[types.TaxID]types.Node
	order       []types.TaxID
	mergedCount int
}

var snapshotDatePattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})`)

// DateFromPath resolves a snapshot's version_date from its directory name,
// grounded on the original Python loader's
// `datetime.strptime(path.name.split("_")[1], "%Y-%m-%d")`, generalized to
// a regex so a trailing suffix after the date doesn't break parsing.
func DateFromPath(path string) (time.Time, error) {
	base := filepath.Base(filepath.Clean(path))
	m := snapshotDatePattern.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: no _YYYY-MM-DD date found in snapshot path %q", types.ErrMalformedInput, base)
	}
	return time.Parse("2006-01-02", m[1])
}

// Load parses nodes.dmp and names.dmp (and counts merged.dmp's records,
// which spec §4.2 says are not rehydrated as first-class events) from dir.
func Load(dir string) (*Reader, error) {
	nodes, order, err := loadNodes(filepath.Join(dir, "nodes.dmp"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading nodes.dmp: %v", types.ErrIngestError, err)
	}

	names, err := loadNames(filepath.Join(dir, "names.dmp"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading names.dmp: %v", types.ErrIngestError, err)
	}
	for id, n := range nodes {
		n.Name = names[id]
		nodes[id] = n
	}

	mergedCount, err := countMerged(filepath.Join(dir, "merged.dmp"))
	if err != nil {
		return nil, fmt.Errorf("%w: loading merged.dmp: %v", types.ErrIngestError, err)
	}

	return &Reader{nodes: nodes, order: order, mergedCount: mergedCount}, nil
}

// All returns an iterator over every (tax_id, node) pair in snapshot order —
// the shape the differential ingester's diff loop consumes (spec §4.2 step
// 4: "For each (tax_id, node) in the snapshot").
func (r *Reader) All() iter.Seq2[types.TaxID, types.Node] {
	return func(yield func(types.TaxID, types.Node) bool) {
		for _, id := range r.order {
			if !yield(id, r.nodes[id]) {
				return
			}
		}
	}
}

// Lookup provides random access to a single taxon's snapshot state.
func (r *Reader) Lookup(id types.TaxID) (types.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// MergedCount reports how many merged.dmp records this snapshot carried.
// The ingester does not read it, and merged records are not translated
// into events (spec §4.2).
func (r *Reader) MergedCount() int {
	return r.mergedCount
}

// dmpFields splits one NCBI .dmp line on its "\t|\t" field separator.
func dmpFields(line string) []string {
	line = strings.TrimSuffix(line, "\t|")
	return strings.Split(line, "\t|\t")
}

func loadNodes(path string) (map[types.TaxID]types.Node, []types.TaxID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	nodes := make(map[types.TaxID]types.Node)
	var order []types.TaxID

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := dmpFields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		id := types.TaxID(strings.TrimSpace(fields[0]))
		parent := types.TaxID(strings.TrimSpace(fields[1]))
		rank := strings.TrimSpace(fields[2])

		nodes[id] = types.Node{TaxID: id, ParentID: parent, Rank: rank}
		order = append(order, id)
	}
	return nodes, order, sc.Err()
}

func loadNames(path string) (map[types.TaxID]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := make(map[types.TaxID]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := dmpFields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		id := types.TaxID(strings.TrimSpace(fields[0]))
		name := strings.TrimSpace(fields[1])
		nameClass := strings.TrimSpace(fields[3])
		if nameClass == "scientific name" {
			names[id] = name
		}
	}
	return names, sc.Err()
}

func countMerged(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			count++
		}
	}
	return count, sc.Err()
}

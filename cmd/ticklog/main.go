// Command ticklog prints a per-turn summary of a recorded tick log.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/colonyserver/internal/engine"
	"github.com/talgya/colonyserver/internal/persistence"
)

type turnSummary struct {
	turn     int
	sets     int
	kinds    map[string]int
	messages []string
}

func main() {
	dir := flag.String("dir", "data/ticks", "tick log directory")
	from := flag.Int("from", 0, "first turn to print")
	to := flag.Int("to", 0, "last turn to print (0 = all)")
	verbose := flag.Bool("v", false, "print every message")
	flag.Parse()

	files, err := persistence.TickLogFiles(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ticklog: %v\n", err)
		os.Exit(1)
	}
	var size int64
	for _, f := range files {
		if st, err := os.Stat(f); err == nil {
			size += st.Size()
		}
	}
	fmt.Printf("%d files, %s compressed\n", len(files), humanize.Bytes(uint64(size)))

	var cur *turnSummary
	flush := func() {
		if cur == nil {
			return
		}
		kinds := make([]string, 0, len(cur.kinds))
		for k, n := range cur.kinds {
			kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
		}
		sort.Strings(kinds)
		fmt.Printf("turn %4d  %-12s  %3d sets  %s\n", cur.turn, engine.DateString(cur.turn), cur.sets, strings.Join(kinds, " "))
		if *verbose {
			for _, m := range cur.messages {
				fmt.Printf("    %s\n", m)
			}
		}
		cur = nil
	}

	err = persistence.ReadTickLog(*dir, func(e persistence.RecordedEntry) error {
		if e.Turn < *from || (*to > 0 && e.Turn > *to) {
			return nil
		}
		if cur == nil || cur.turn != e.Turn {
			flush()
			cur = &turnSummary{turn: e.Turn, kinds: make(map[string]int)}
		}
		cur.sets++
		for _, c := range e.Changes {
			cur.kinds[c.Kind]++
			if c.Message != nil {
				cur.messages = append(cur.messages, c.Message.Text)
			}
		}
		return nil
	})
	flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ticklog: %v\n", err)
		os.Exit(1)
	}
}

// Command x509tail tails the JSON audit log a running x509validate
// process writes to stderr (redirected to a file by the operator) and
// pretty-prints each structured line -- the concrete home for the
// github.com/hpcloud/tail dependency (SPEC_FULL.md §7.2).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/hpcloud/tail"
)

func main() {
	path := flag.String("f", "", "path to the audit log file to tail")
	follow := flag.Bool("follow", true, "keep tailing after reaching EOF")
	fromStart := flag.Bool("from-start", false, "start from the beginning of the file instead of the end")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "x509tail: -f is required")
		os.Exit(1)
	}

	t, err := tail.TailFile(*path, tail.Config{
		Follow:   *follow,
		ReOpen:   *follow,
		Location: location(*fromStart),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "x509tail:", err)
		os.Exit(1)
	}

	for line := range t.Lines {
		if line.Err != nil {
			fmt.Fprintln(os.Stderr, "x509tail:", line.Err)
			continue
		}
		printLine(line.Text)
	}
}

func location(fromStart bool) *tail.SeekInfo {
	if fromStart {
		return &tail.SeekInfo{Offset: 0, Whence: os.SEEK_SET}
	}
	return &tail.SeekInfo{Offset: 0, Whence: os.SEEK_END}
}

// printLine pretty-prints one JSON-formatted logrus line (the format
// audit.Logger writes), falling back to the raw line if it isn't valid
// JSON -- a log file can contain non-JSON lines from other sources
// sharing the same file.
func printLine(raw string) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		fmt.Println(raw)
		return
	}
	level, _ := fields["level"].(string)
	msg, _ := fields["msg"].(string)
	component, _ := fields["component"].(string)
	ts, _ := fields["time"].(string)
	fmt.Printf("%s [%s] %s: %s\n", ts, level, component, msg)
}

package command

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"multidex/core"
)

// NoData is printed by find when a key has no live values.
const NoData = "null"

const helpText = `Available Commands:

INSERT <key> <value>
  Associate a 32-bit integer value with the key.
  Inserting an existing (key, value) pair is a no-op.

DELETE <key> <value>
  Remove the value from the key's set.
  A missing key or value is a no-op.

FIND <key>
  Print the key's values in ascending order, space-separated.
  Prints null when the key has no values.

EXISTS <key>
  Print true if the key has at least one value, false otherwise.

COUNT
  Print the number of distinct keys.

KEYS
  Print all keys in ascending order, one per line.

HELP
  Show this help message.`

// Run reads commands line by line from r until EOF and executes them against
// the store, writing any output to w.
//
// Unparseable lines are logged and skipped; store operations either succeed
// silently or print their documented output. Some inputs prefix the command
// list with a count line, which falls out naturally as an unknown command.
func Run(r io.Reader, w io.Writer, store *core.Store, logger log.Logger) error {
	logger = log.With(logger, "component", "dispatch")

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, err := Parse(line)
		if err != nil {
			level.Debug(logger).Log("msg", "skipping input line", "line", line, "err", err)
			continue
		}

		if err := execute(cmd, w, store); err != nil {
			level.Error(logger).Log("msg", "command failed", "op", cmd.Op, "err", err)
		}
	}

	return scanner.Err()
}

func execute(cmd *Command, w io.Writer, store *core.Store) error {
	switch cmd.Op {
	case OpInsert:
		return store.Insert(cmd.Key, cmd.Value)

	case OpDelete:
		return store.Delete(cmd.Key, cmd.Value)

	case OpFind:
		fmt.Fprintln(w, FormatValues(store.Find(cmd.Key)))

	case OpExists:
		fmt.Fprintln(w, strconv.FormatBool(store.Exists(cmd.Key)))

	case OpCount:
		fmt.Fprintln(w, store.Count())

	case OpKeys:
		for _, key := range store.Keys() {
			fmt.Fprintln(w, key)
		}

	case OpHelp:
		fmt.Fprintln(w, helpText)
	}

	return nil
}

// FormatValues renders a find result: ascending values separated by single
// spaces, or the no-data sentinel for an empty result.
func FormatValues(values []int32) string {
	if len(values) == 0 {
		return NoData
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, " ")
}

package command

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Op names a store operation requested by a client.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
	OpFind   Op = "find"
	OpExists Op = "exists"
	OpCount  Op = "count"
	OpKeys   Op = "keys"
	OpHelp   Op = "help"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArgCount  = errors.New("wrong number of arguments")
	ErrBadValue       = errors.New("value is not a 32-bit integer")
)

// Command is one decoded client request. Key and Value are only meaningful
// for the operations that take them.
type Command struct {
	Op    Op
	Key   string
	Value int32
}

// argument counts per operation, not counting the operation name itself
var arity = map[Op]int{
	OpInsert: 2,
	OpDelete: 2,
	OpFind:   1,
	OpExists: 1,
	OpCount:  0,
	OpKeys:   0,
	OpHelp:   0,
}

// Parse decodes a single input line into a Command.
//
// Lines are tokenized with shell quoting rules, so keys containing spaces can
// be written as "a key". The operation name is case-insensitive.
func Parse(line string) (*Command, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	op := Op(strings.ToLower(words[0]))
	want, ok := arity[op]
	if !ok {
		return nil, ErrUnknownCommand
	}
	if len(words)-1 != want {
		return nil, ErrWrongArgCount
	}

	cmd := &Command{Op: op}

	if want >= 1 {
		cmd.Key = words[1]
	}
	if want >= 2 {
		v, err := strconv.ParseInt(words[2], 10, 32)
		if err != nil {
			return nil, ErrBadValue
		}
		cmd.Value = int32(v)
	}

	return cmd, nil
}

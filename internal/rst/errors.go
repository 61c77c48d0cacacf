package rst

import (
	"errors"
	"fmt"
)

var (
	// ErrBadFormat marks malformed or mutually inconsistent input records.
	ErrBadFormat = errors.New("bad format")
	// ErrBadStructure marks records that violate the tree/forest invariants.
	ErrBadStructure = errors.New("bad structure")
	// ErrBadLogic marks a misuse of the assembler API. It is raised as a panic.
	ErrBadLogic = errors.New("bad logic")
)

func badFormat(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadFormat, fmt.Sprintf(format, args...))
}

func badStructure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadStructure, fmt.Sprintf(format, args...))
}

func badLogic(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrBadLogic, fmt.Sprintf(format, args...)))
}

// Recoverable reports whether err should abort only the current file (bad format
// or bad structure) rather than the whole run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrBadFormat) || errors.Is(err, ErrBadStructure)
}

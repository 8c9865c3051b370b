package watchlist

import "errors"

// UserInputError marks errors caused by what the viewer typed. They are shown
// as a blocking notice and never logged as failures.
type UserInputError struct {
	Symbol string
	msg    string
	kind   error
}

func (e *UserInputError) Error() string { return e.msg }

func (e *UserInputError) Unwrap() error { return e.kind }

var (
	ErrEmptySymbol     = errors.New("empty symbol")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrNotInWatchlist  = errors.New("symbol not in watchlist")
)

func emptySymbol() error {
	return &UserInputError{msg: "Please enter a stock symbol", kind: ErrEmptySymbol}
}

func duplicateSymbol(sym string) error {
	return &UserInputError{Symbol: sym, msg: sym + " is already in your watchlist", kind: ErrDuplicateSymbol}
}

func notInWatchlist(sym string) error {
	return &UserInputError{Symbol: sym, msg: sym + " is not in your watchlist", kind: ErrNotInWatchlist}
}

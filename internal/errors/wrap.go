package errors

import "errors"

// Chain lists the message of err and of each error it wraps, outermost
// first. Joined errors follow their first branch.
func Chain(err error) []string {
	var chain []string
	for ; err != nil; err = next(err) {
		chain = append(chain, err.Error())
	}
	return chain
}

// RootCause returns the innermost error in err's chain.
func RootCause(err error) error {
	for {
		n := next(err)
		if n == nil {
			return err
		}
		err = n
	}
}

func next(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := j.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

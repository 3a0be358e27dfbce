package lib

import "fmt"

// WrapError stacks a sentinel error on top of its cause so that both can be
// matched with errors.Is.
func WrapError(sentinel error, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

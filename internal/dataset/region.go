package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrBadRegion is returned when an identifier carries no region prefix.
var ErrBadRegion = errors.New("invalid region prefix")

// ExtractRegion returns the district encoded in the first two characters of
// a school code such as "05M123".
func ExtractRegion(id string) (int, error) {
	if len(id) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadRegion, id)
	}
	n, err := strconv.Atoi(id[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadRegion, id)
	}
	return n, nil
}

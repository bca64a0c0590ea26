package metrics

import "errors"

// ErrInvalidBuckets reports histogram buckets that are not strictly increasing.
var ErrInvalidBuckets = errors.New("histogram buckets must be strictly increasing")

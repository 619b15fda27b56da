package model

import "fmt"

// Bucket is the work-queue a thread is filed under.
type Bucket string

const (
	BucketUnassigned     Bucket = "Unassigned"
	BucketSales          Bucket = "Sales"
	BucketActiveProjects Bucket = "Active Projects"
	BucketInternal       Bucket = "Internal"
	BucketWaiting        Bucket = "Waiting on Others"
	BucketCleared        Bucket = "Cleared"
)

// AllBuckets lists every bucket in dashboard order.
var AllBuckets = []Bucket{
	BucketUnassigned,
	BucketSales,
	BucketActiveProjects,
	BucketInternal,
	BucketWaiting,
	BucketCleared,
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketUnassigned, BucketSales, BucketActiveProjects,
		BucketInternal, BucketWaiting, BucketCleared:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether b is the archive bucket. Threads in it are
// excluded from every actionable view.
func (b Bucket) IsTerminal() bool {
	return b == BucketCleared
}

// ShortName is the first word of the bucket label, used in compact views.
func (b Bucket) ShortName() string {
	switch b {
	case BucketUnassigned:
		return "Unassigned"
	case BucketSales:
		return "Sales"
	case BucketActiveProjects:
		return "Active"
	case BucketInternal:
		return "Internal"
	case BucketWaiting:
		return "Waiting"
	case BucketCleared:
		return "Cleared"
	default:
		return string(b)
	}
}

// ParseBucket resolves a bucket from its label. Matching is exact first,
// then falls back to the short name so "active" resolves too.
func ParseBucket(s string) (Bucket, error) {
	b := Bucket(s)
	if b.Valid() {
		return b, nil
	}
	for _, candidate := range AllBuckets {
		if equalFold(candidate.ShortName(), s) || equalFold(string(candidate), s) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

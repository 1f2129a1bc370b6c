package throttle

import "time"

type BucketConf struct {
	Burst     int           // maximum number of tokens in the bucket
	Increment int           // how many tokens to add each period
	Period    time.Duration // how often to add Increment
}

// Valid reports whether buckets built from c ever refill
func (c *BucketConf) Valid() bool {
	return c.Burst > 0 && c.Increment > 0 && c.Period > 0
}

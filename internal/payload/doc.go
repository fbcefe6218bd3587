// Package payload normalizes tool results into a plain Go value.
//
// Workers wrap their results in different envelopes. Extract runs an
// ordered list of matchers over the raw result and returns the value of
// the first one that applies.
package payload

// Package test holds the assertion helpers shared by every package test.
//
// The Expect functions report a failure and let the test continue. The
// Demand functions stop the test, and should be used when later checks
// depend on the value being correct.
//
// A nil value counts as success, so an error return can be passed straight
// to ExpectSuccess or DemandSuccess.
package test

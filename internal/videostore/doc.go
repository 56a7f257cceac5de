// Package videostore persists localization jobs and their per-stage state in
// SQLite. Every stage-status write flows through CompareAndSwap, which guards
// against stale pipeline generations, and Load refuses records whose stage
// rows have drifted from the fixed pipeline contract.
package videostore

// Package pipeline provides a framework for executing audit steps in sequence.
//
// An audit moves one URL through scraping, analysis, optional screenshot
// export and optional persistence. Each stage is implemented as a Step that
// receives the current model.AuditReport and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context between stages
//
// The pipeline supports both individual audits and batch processing with
// concurrency control using errgroup.
package pipeline

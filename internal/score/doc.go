// Package score aggregates findings into an OverallScore and renders the
// natural-language summary.
//
// The score is an additive penalty and bonus model clamped to [0,100]:
// every dark finding costs 15 points, every grey finding 8, and every white
// finding earns 5. The model is monotonic, so an additional dark pattern
// never raises the score and an additional white pattern never lowers it.
package score

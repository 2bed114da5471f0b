// Package extract turns rendered HTML into a bounded model.PageSnapshot.
//
// The extractor parses the document once with goquery, builds an index of
// text-bearing elements in the same pass, and then runs a fixed list of
// independent extraction passes (forms, buttons, links, modals, cookie
// notices, keyword fragments, accessibility counters, meta tags). Each pass
// writes only its own snapshot field and caps its output at the limits
// defined in the model package.
//
// Extraction never fails. Malformed or partial HTML yields empty
// collections and zero counts, because a missing signal (for example the
// absence of a privacy link) is itself meaningful to the detectors.
package extract

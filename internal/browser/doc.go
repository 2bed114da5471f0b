// Package browser owns the headless Chromium used to render audited pages.
//
// A Session holds one browser process that is launched lazily on the first
// Acquire, shared by all concurrent fetches, and closed by Shutdown. A
// Fetcher opens one short-lived page per request, blocks heavy resources,
// navigates with a bounded timeout, waits a short settle delay and captures
// the title, the HTML and a fixed-region screenshot concurrently. The page
// is closed on every exit path.
//
// Fetch failures are typed: ErrNavigationTimeout, *NetworkError and
// *StatusError. Kind maps any error to a model.ErrorKind so callers never
// need to match on error strings.
package browser

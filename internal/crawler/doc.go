// Package crawler fetches tracked pages through a stealth-configured HTTP or
// headless-browser session. Every fetch uses a randomized client identity and
// a randomized politeness delay, retries on block or transient failure up to a
// fixed budget, and promotes static fetches to a real browser when the page
// turns out to be a JavaScript shell.
package crawler

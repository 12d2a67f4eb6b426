// Package pagehtml holds the string transforms applied to page HTML before it
// is served: route param injection, script path rewriting for pages served
// from another directory's template, title replacement and dev snippet
// injection.
//
// All functions are pure; they never parse the document and only look for
// the first (or last) occurrence of the tags they care about.
package pagehtml

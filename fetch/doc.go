// Package fetch retrieves candidate articles for a keyword.
//
// FeedFetcher queries an RSS or Atom search endpoint built from a URL
// template, extracts paragraph text from each entry with goquery and,
// when an entry carries too little text, optionally downloads the linked
// page. Page requests share a token-bucket limiter.
package fetch

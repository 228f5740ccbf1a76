// Package clientip extracts the client address a PER_IP rule keys its
// buckets by.
//
// Proxy headers are spoofable, so they are only consulted when the
// deployment explicitly trusts one; otherwise the socket's remote address
// wins. Extracted addresses are parsed and normalized before use, which
// keeps one client from occupying several buckets through formatting
// variants of the same address.
package clientip

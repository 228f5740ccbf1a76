// Package antmatch implements Ant-style path pattern matching for the
// request-path include/exclude filter.
//
// Supported wildcards: '?' matches one character, '*' matches any run of
// characters within one path segment, and '**' matches any number of whole
// segments. Matching always operates on the request path; the servlet-style
// catch-all registration stays outside this package.
package antmatch

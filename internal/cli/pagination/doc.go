// Package pagination slices and sorts listing tables for CLI output.
//
// Two mutually exclusive modes are supported: offset-based (--limit and
// --offset) and page-based (--page and --page-size). Sorting takes a
// "field" or "field:order" expression.
package pagination

// Package schema declares the columns each dashboard expects and validates
// record sets against them once, before anything is normalized or rendered.
package schema

// Package normalize coerces text cells into numbers using Dutch locale rules.
//
// Two policies exist and are deliberately different. Averaged columns accept a
// comma as decimal separator and turn anything else into null. Summed count
// columns parse strictly and count anything else as zero.
package normalize

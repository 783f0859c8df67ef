// Package charts renders dashboard charts to PNG.
//
// Line, bar and pie charts are drawn with go-chart; grouped bars, horizontal
// bars and box plots with gonum/plot.
package charts

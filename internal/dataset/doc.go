// Package dataset holds the in-memory record set shared by every dashboard stage.
//
// A Frame is an ordered list of named columns and rows of Values. A Value is
// null, text or a number. Filtering yields a View, a row subset that points at
// the frame it came from; views are cheap and never modify the frame.
//
// Example usage:
//
//	f := dataset.MustNew("Jaar", "Aantal")
//	_ = f.Append(dataset.Number(2023), dataset.Number(12))
//	recent := f.All().Where(func(i int) bool { return f.At(i, 0).Key() == "2023" })
package dataset

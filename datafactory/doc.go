// Package datafactory generates random values used to populate test
// documents: dictionary words, free text of a minimum length, integers and
// timestamps drawn uniformly from a range, and business names.
//
// # Usage
//
//	df := datafactory.New()
//	title := df.Text(70)                 // "river gold hat ..." (>= 70 bytes)
//	year := df.NumberBetween(1950, 2015) // inclusive bounds
//	when := df.DateBetween(time.Now().AddDate(-3, 0, 0), time.Now())
//
// Output is not deterministic. Tests that need reproducible values build
// the factory with [NewWithRand] and a seeded source.
package datafactory

// Package experiment parses experiment definition files.
//
// An experiment file holds one experiment per line. Fields are separated by
// runs of whitespace, blank lines and lines starting with '#' are ignored.
// Which columns a line must have is described by a Schema; the Validator
// checks a single line against it and the Loader applies the Validator to a
// sequence of files, collecting valid records in encounter order.
//
//	# label  ns          k     reps  per-n  seed  input    method
//	sl-uni   100,200,400 5,10  10    3      NOW   uniform  SainteLague
//	ldm      1000        8     5     1      42    pareto2  LDM(0.5,1)
package experiment

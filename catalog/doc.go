/*
Package catalog holds the static stage definitions for the game.

The catalog is read-only at runtime: it is either the built-in set or a
JSON file supplied via CATALOG_PATH. Stage numbers form the total order
of progression; they need not be contiguous. "No stage above the
frontier" is how the game signals completion.

Each stage has a puzzle type and a canonical answer. Structured types
(pattern, path, tap) reduce to string equality because the client
encodes its input canonically: a 0/1 grid string, a direction-symbol
string, or the TAP_<n> sentinel. Choice stages carry their own voting
config (group, options, window, mode) instead of an authored answer.

	cat, err := catalog.Load("stages.json")
	stage, ok := cat.Lookup(3)
*/
package catalog

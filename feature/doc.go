// Package feature defines how domain elements become numeric features.
//
// The clusterer consumes two collaborators from this package:
//
//   - an Extractor, mapping an element to named feature values
//   - a SymbolTable, assigning each feature name a dense dimension index
//
// MapSymbolTable is the default symbol table. BagOfWords is a ready-made
// extractor for text that counts word tokens:
//
//	f, _ := feature.BagOfWords{}.Features("A A A")
//	// f == map[string]float64{"A": 3}
package feature

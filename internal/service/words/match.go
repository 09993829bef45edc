package words

// continuationAuxiliaries are the helper verbs that commonly open a
// hyphenated continuation such as "are-gathered" in recognizer output. A
// standalone auxiliary still matches a compound that begins with it; any
// other standalone word never matches a compound.
var continuationAuxiliaries = map[string]struct{}{
	"are": {}, "is": {}, "was": {}, "were": {},
	"have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "can": {}, "could": {},
}

// Match reports whether a and b count as the same word for overlap
// detection. context is the full word list of the side the comparison tail
// came from, consulted so that a standalone word never matches against the
// trailing part of a nearby compound ("centered" is not "self-centered").
//
// Matching is exact on clean forms. Stems never match: "testing" is not
// "test".
func Match(a, b Word, context []Word) bool {
	aDigits, bDigits := a.IsDigits(), b.IsDigits()
	if aDigits || bDigits {
		return aDigits && bDigits && a.Clean == b.Clean
	}

	if a.IsCompound && b.IsCompound {
		return a.Clean == b.Clean
	}

	if a.IsCompound != b.IsCompound {
		compound, standalone := a, b
		if b.IsCompound {
			compound, standalone = b, a
		}
		return matchesCompoundStart(standalone, compound)
	}

	if hasCompoundSuffix(a, context) || hasCompoundSuffix(b, context) {
		return false
	}

	return a.Clean == b.Clean
}

// matchesCompoundStart reports whether a standalone word counts as the same
// word as a compound. Only a continuation auxiliary equal to the compound's
// first part does; a standalone word equal to a later part is a different
// word.
func matchesCompoundStart(standalone, compound Word) bool {
	parts := compound.CompoundParts()
	if len(parts) < 2 || standalone.Clean != parts[0] {
		return false
	}
	_, aux := continuationAuxiliaries[standalone.Clean]
	return aux
}

// hasCompoundSuffix reports whether w's clean form equals the last part of
// any compound word in context.
func hasCompoundSuffix(w Word, context []Word) bool {
	if w.IsCompound {
		return false
	}
	for _, c := range context {
		parts := c.CompoundParts()
		if len(parts) > 1 && parts[len(parts)-1] == w.Clean {
			return true
		}
	}
	return false
}

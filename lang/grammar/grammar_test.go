package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

// TestEBNF checks that jactl.ebnf, the grammar reference document for
// lang/parser's recursive-descent implementation, is itself well-formed
// EBNF with every production reachable from Script. It does not generate
// or drive the parser; lang/parser is hand-written and this file exists
// only so the documentation cannot silently rot into something that
// doesn't even parse as a grammar.
func TestEBNF(t *testing.T) {
	f, err := os.Open("jactl.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("jactl.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Script"); err != nil {
		t.Fatal(err)
	}
}

package cnf_test

import (
	"fmt"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

func ExampleParseCNF() {
	c, err := cnf.ParseCNF("nsubj(wears-2,Robert-1), dobj(wears-2,shirt-4).")
	if err != nil {
		panic(err)
	}
	for _, lit := range c.Literals() {
		tok, _ := lit.Arg2.Token()
		fmt.Printf("%s %s %d\n", lit.Pred, tok.Form, tok.Index)
	}
	// Output:
	// nsubj Robert 1
	// dobj shirt 4
}

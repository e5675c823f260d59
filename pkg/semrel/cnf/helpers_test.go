package cnf

import mapset "github.com/deckarep/golang-set/v2"

func newSet(items ...string) mapset.Set[string] {
	return mapset.NewSet(items...)
}

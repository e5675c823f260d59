package ontology

import "context"

// Source exposes the direct edges of a taxonomy kept elsewhere, such as a
// database. FromSource derives a full Oracle from it.
type Source interface {
	// Parents returns the direct parents of term under relation.
	Parents(ctx context.Context, relation, term string) ([]string, error)
	// Known reports whether term appears in any edge.
	Known(ctx context.Context, term string) (bool, error)
}

type sourceOracle struct {
	src Source
}

// FromSource returns an Oracle answering every question through src.
func FromSource(src Source) Oracle {
	return &sourceOracle{src: src}
}

func (o *sourceOracle) parents(relation string) parentsFunc {
	return func(ctx context.Context, term string) ([]string, error) {
		return o.src.Parents(ctx, relation, term)
	}
}

func (o *sourceOracle) generalisations(ctx context.Context, term string) ([]string, error) {
	inst, err := o.src.Parents(ctx, RelInstance, term)
	if err != nil {
		return nil, err
	}
	sup, err := o.src.Parents(ctx, RelSubclass, term)
	if err != nil {
		return nil, err
	}
	return append(inst, sup...), nil
}

func (o *sourceOracle) IsSubclass(ctx context.Context, child, parent string) (bool, error) {
	return reaches(ctx, child, parent, o.parents(RelSubclass))
}

func (o *sourceOracle) IsInstance(ctx context.Context, term, class string) (bool, error) {
	classes, err := o.src.Parents(ctx, RelInstance, term)
	if err != nil {
		return false, err
	}
	for _, c := range classes {
		ok, err := o.IsSubclass(ctx, c, class)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (o *sourceOracle) IsSubAttribute(ctx context.Context, attr, parent string) (bool, error) {
	return reaches(ctx, attr, parent, o.parents(RelSubAttribute))
}

func (o *sourceOracle) ClassesOf(ctx context.Context, term string) ([]string, error) {
	return o.src.Parents(ctx, RelInstance, term)
}

func (o *sourceOracle) CommonAncestor(ctx context.Context, a, b string) (string, bool, error) {
	return commonAncestor(ctx, a, b, o.generalisations)
}

func (o *sourceOracle) Depth(ctx context.Context, class string) (int, error) {
	return depth(ctx, class, o.parents(RelSubclass))
}

func (o *sourceOracle) Contains(ctx context.Context, term string) (bool, error) {
	return o.src.Known(ctx, term)
}

package procedures

import (
	"context"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
)

var (
	failed    = Outcome{Status: Fail}
	succeeded = Outcome{Status: Succeed}
)

func outcome(ok bool, err error) (Outcome, error) {
	if err != nil {
		return failed, err
	}
	if ok {
		return succeeded, nil
	}
	return failed, nil
}

// groundNames returns the names of both arguments, or false when either is
// still a variable or a word pattern.
func groundNames(lit cnf.Literal) (string, string, bool) {
	if !lit.Arg1.IsGround() || !lit.Arg2.IsGround() {
		return "", "", false
	}
	return lit.Arg1.Name, lit.Arg2.Name, true
}

// IsSubclass succeeds when arg1 is arg2 or one of its subclasses.
func IsSubclass(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	child, parent, ok := groundNames(lit)
	if !ok {
		return failed, nil
	}
	return outcome(o.IsSubclass(ctx, child, parent))
}

// IsInstanceOf succeeds when arg1 is an instance of arg2 or of a subclass of it.
func IsInstanceOf(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	term, class, ok := groundNames(lit)
	if !ok {
		return failed, nil
	}
	return outcome(o.IsInstance(ctx, term, class))
}

// IsChildOf succeeds when arg1 is either an instance or a subclass of arg2.
func IsChildOf(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	child, parent, ok := groundNames(lit)
	if !ok {
		return failed, nil
	}
	if ok, err := o.IsInstance(ctx, child, parent); err != nil || ok {
		return outcome(ok, err)
	}
	return outcome(o.IsSubclass(ctx, child, parent))
}

// categoryClasses maps the coarse categories used by controlled-English
// rules onto the ontology classes they stand for.
var categoryClasses = map[string][]string{
	"Person": {"Human", "SocialRole"},
	"Time":   {"TimeMeasure", "Process"},
}

// IsCategory succeeds when arg1 is a subclass or instance of the classes
// behind category arg2. A category with no mapping is treated as a class.
func IsCategory(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	term, category, ok := groundNames(lit)
	if !ok {
		return failed, nil
	}
	classes, mapped := categoryClasses[category]
	if !mapped {
		classes = []string{category}
	}
	for _, class := range classes {
		if ok, err := o.IsSubclass(ctx, term, class); err != nil || ok {
			return outcome(ok, err)
		}
		if ok, err := o.IsInstance(ctx, term, class); err != nil || ok {
			return outcome(ok, err)
		}
	}
	return failed, nil
}

// IsSubAttribute succeeds when arg1 is arg2 or a transitive sub-attribute.
func IsSubAttribute(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	attr, parent, ok := groundNames(lit)
	if !ok {
		return failed, nil
	}
	return outcome(o.IsSubAttribute(ctx, attr, parent))
}

// Different succeeds when both arguments are bound to different values.
func Different(_ context.Context, lit cnf.Literal, _ ontology.Oracle) (Outcome, error) {
	if !lit.Arg1.IsGround() || !lit.Arg2.IsGround() {
		return failed, nil
	}
	return outcome(lit.Arg1 != lit.Arg2, nil)
}

// ClassOf looks up the ontology classes of the ground term in arg2. A
// variable arg1 is bound to the first class; a ground arg1 succeeds when one
// of the classes falls under it.
func ClassOf(ctx context.Context, lit cnf.Literal, o ontology.Oracle) (Outcome, error) {
	if !lit.Arg2.IsGround() {
		return failed, nil
	}
	classes, err := o.ClassesOf(ctx, lit.Arg2.Name)
	if err != nil {
		return failed, err
	}
	if len(classes) == 0 {
		return failed, nil
	}
	if lit.Arg1.IsVar() {
		return Outcome{
			Status:   SucceedWithBindings,
			Bindings: map[string]cnf.Term{lit.Arg1.Name: cnf.Const(classes[0])},
		}, nil
	}
	if !lit.Arg1.IsGround() {
		return failed, nil
	}
	for _, c := range classes {
		ok, err := o.IsSubclass(ctx, c, lit.Arg1.Name)
		if err != nil {
			return failed, err
		}
		if ok {
			return succeeded, nil
		}
	}
	return failed, nil
}

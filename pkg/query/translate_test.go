package query

import (
	"context"
	"testing"

	"github.com/convmem/convmem/pkg/conv"
)

func TestSimpleTranslatorSplitsTerms(t *testing.T) {
	tr := SimpleTranslator{}
	got, err := tr.Translate(context.Background(), "Alice Budget Meeting")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(got.Exprs) != 1 {
		t.Fatalf("expected 1 expr, got %d", len(got.Exprs))
	}
	expr := got.Exprs[0]
	if expr.RewrittenQuery != "Alice Budget Meeting" {
		t.Fatalf("expected rewritten query to preserve original text, got %q", expr.RewrittenQuery)
	}
	if len(expr.Filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(expr.Filters))
	}
	want := []string{"alice", "budget", "meeting"}
	got2 := expr.Filters[0].SearchTerms
	if len(got2) != len(want) {
		t.Fatalf("expected %v, got %v", want, got2)
	}
	for i := range want {
		if got2[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got2)
		}
	}
}

func TestSimpleTranslatorEmptyInput(t *testing.T) {
	tr := SimpleTranslator{}
	got, err := tr.Translate(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(got.Exprs) != 0 {
		t.Fatalf("expected no exprs for empty input, got %d", len(got.Exprs))
	}
}

func TestTranslatedFilterToCompileArgsCombinesTermKinds(t *testing.T) {
	f := TranslatedFilter{
		ActionSearchTerm:  "asked",
		EntitySearchTerms: []string{"alice", "bob"},
		SearchTerms:       []string{"budget"},
	}
	args := f.ToCompileArgs()
	if args.Group.BooleanOp != OpAnd {
		t.Fatalf("expected AND group, got %v", args.Group.BooleanOp)
	}
	if len(args.Group.Terms) != 4 {
		t.Fatalf("expected 4 leaf terms (1 action + 2 entity + 1 plain), got %d", len(args.Group.Terms))
	}
	if _, ok := args.Group.Terms[0].(PropertySearchTerm); !ok {
		t.Fatalf("expected first term to be a PropertySearchTerm for the action, got %T", args.Group.Terms[0])
	}
	if args.When != nil {
		t.Fatalf("expected no WhenFilter absent a time range, got %+v", args.When)
	}
}

func TestTranslatedFilterToCompileArgsWithTimeRange(t *testing.T) {
	tr := conv.DateRange{Start: "2026-01-01T00:00:00Z"}
	f := TranslatedFilter{SearchTerms: []string{"budget"}, TimeRange: &tr}
	args := f.ToCompileArgs()
	if args.When == nil || args.When.DateRange == nil || args.When.DateRange.Start != tr.Start {
		t.Fatalf("expected WhenFilter carrying the time range, got %+v", args.When)
	}
}

func TestTranslatedExprToCompileArgsOnePerFilter(t *testing.T) {
	e := TranslatedExpr{
		RewrittenQuery: "budget talk",
		Filters: []TranslatedFilter{
			{SearchTerms: []string{"budget"}},
			{SearchTerms: []string{"talk"}},
		},
	}
	args := e.ToCompileArgs()
	if len(args) != 2 {
		t.Fatalf("expected 2 CompileArgs, one per filter, got %d", len(args))
	}
}

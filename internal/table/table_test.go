package table

import "testing"

func sample(t *testing.T) *Table {
	t.Helper()
	tb := MustNew("DBN", "Grade", "Score")
	rows := [][]Value{
		{String("01M015"), String("3"), Number(290)},
		{String("01M015"), String("4"), Null()},
		{String("02M001"), String("All Grades"), Number(300)},
	}
	for _, r := range rows {
		if err := tb.Append(r...); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return tb
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New("a", "b", "a"); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestAppendChecksArity(t *testing.T) {
	tb := MustNew("a", "b")
	if err := tb.Append(Number(1)); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestFilterLeavesSourceUntouched(t *testing.T) {
	tb := sample(t)
	out := tb.Filter(func(r Row) bool { return r.Get("Grade").Text() != "All Grades" })
	if out.Len() != 2 {
		t.Fatalf("filtered len = %d, want 2", out.Len())
	}
	if tb.Len() != 3 {
		t.Fatalf("source len = %d, want 3", tb.Len())
	}
}

func TestMapCopiesRows(t *testing.T) {
	tb := sample(t)
	out, err := tb.Map(func(_ Row, vals []Value) error {
		vals[2] = Number(1)
		return nil
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if f, _ := out.Row(0).Get("Score").Float(); f != 1 {
		t.Fatalf("mapped score = %v, want 1", f)
	}
	if f, _ := tb.Row(0).Get("Score").Float(); f != 290 {
		t.Fatalf("source score changed to %v", f)
	}
}

func TestInsertAndSelect(t *testing.T) {
	tb := sample(t)
	out, err := tb.Insert(0, "District", func(r Row) (Value, error) {
		return String(r.Get("DBN").Text()[:2]), nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	cols := out.Columns()
	if cols[0] != "District" || len(cols) != 4 {
		t.Fatalf("columns = %v", cols)
	}
	if got := out.Row(2).Get("District").Text(); got != "02" {
		t.Fatalf("district = %q, want 02", got)
	}
	sel, err := out.Select("Score", "District")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Width() != 2 || sel.Row(0).At(1).Text() != "01" {
		t.Fatalf("unexpected selection: %v", sel.Row(0).Values())
	}
	if _, err := out.Select("missing"); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestValueText(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{String("s"), "s"},
		{Number(46.58), "46.58"},
		{Number(3), "3"},
	}
	for _, c := range cases {
		if got := c.v.Text(); got != c.want {
			t.Fatalf("Text() = %q, want %q", got, c.want)
		}
	}
	if !Null().IsNull() || String("").IsNull() {
		t.Fatalf("null detection broken")
	}
}

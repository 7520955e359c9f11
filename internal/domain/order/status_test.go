package order

import "testing"

func TestStatusChain(t *testing.T) {
	tests := []struct {
		status   Status
		next     Status
		hasNext  bool
		previous Status
		hasPrev  bool
	}{
		{StatusQueued, StatusInProduction, true, "", false},
		{StatusInProduction, StatusReady, true, StatusQueued, true},
		{StatusReady, StatusDelivered, true, StatusInProduction, true},
		{StatusDelivered, "", false, "", false},
		{StatusCancelled, "", false, "", false},
		{Status("shipped"), "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			next, ok := tt.status.Next()
			if next != tt.next || ok != tt.hasNext {
				t.Errorf("Next() = %q, %v; want %q, %v", next, ok, tt.next, tt.hasNext)
			}
			prev, ok := tt.status.Previous()
			if prev != tt.previous || ok != tt.hasPrev {
				t.Errorf("Previous() = %q, %v; want %q, %v", prev, ok, tt.previous, tt.hasPrev)
			}
		})
	}
}

func TestStatusNeverSkipsStage(t *testing.T) {
	for _, s := range Stages() {
		if next, ok := s.Next(); ok && next.Rank() != s.Rank()+1 {
			t.Errorf("%s advances to %s", s, next)
		}
		if prev, ok := s.Previous(); ok && prev.Rank() != s.Rank()-1 {
			t.Errorf("%s reverts to %s", s, prev)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusCancelled.Valid() || StatusCancelled.IsStage() {
		t.Error("cancelled is a valid status outside the chain")
	}
	if Status("unknown").Valid() {
		t.Error("unknown status reported valid")
	}
	if StatusCancelled.Rank() != -1 {
		t.Errorf("cancelled rank = %d", StatusCancelled.Rank())
	}
	if StatusInProduction.Label() != "In production" {
		t.Errorf("label = %q", StatusInProduction.Label())
	}
}

func TestAggregateStatus(t *testing.T) {
	q, p, r, d := StatusQueued, StatusInProduction, StatusReady, StatusDelivered

	tests := []struct {
		name    string
		current Status
		lines   []Status
		want    Status
	}{
		{"all queued", q, []Status{q, q, q}, q},
		{"first line started", q, []Status{p, q, q}, p},
		{"all finished", p, []Status{r, r, r}, r},
		{"ready and delivered lines", p, []Status{r, d}, r},
		{"delivery is not inferred", r, []Status{d, d}, r},
		{"delivered stays delivered", d, []Status{r, d}, d},
		{"ready order with line back in production", r, []Status{p, r}, p},
		{"ready order with line back in queue", r, []Status{q, r}, p},
		{"in production with queued and ready lines", p, []Status{q, r}, p},
		{"every line reverted to queue", p, []Status{q, q}, q},
		{"delivered order ignores line in production", d, []Status{p, d}, d},
		{"cancelled never changes", StatusCancelled, []Status{r, r}, StatusCancelled},
		{"no lines", q, nil, q},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.current, tt.lines); got != tt.want {
				t.Errorf("AggregateStatus(%s, %v) = %s, want %s", tt.current, tt.lines, got, tt.want)
			}
		})
	}
}

func TestAggregateStatusIgnoresLineOrder(t *testing.T) {
	multisets := [][]Status{
		{StatusQueued, StatusInProduction, StatusReady},
		{StatusQueued, StatusReady, StatusDelivered},
		{StatusInProduction, StatusReady, StatusDelivered, StatusQueued},
		{StatusReady, StatusDelivered, StatusDelivered},
	}

	for _, current := range append(Stages(), StatusCancelled) {
		for _, set := range multisets {
			want := AggregateStatus(current, set)
			for _, perm := range permutations(set) {
				if got := AggregateStatus(current, perm); got != want {
					t.Errorf("AggregateStatus(%s, %v) = %s, want %s", current, perm, got, want)
				}
			}
		}
	}
}

func permutations(in []Status) [][]Status {
	if len(in) <= 1 {
		return [][]Status{append([]Status(nil), in...)}
	}
	var out [][]Status
	for i := range in {
		rest := make([]Status, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Status{in[i]}, p...))
		}
	}
	return out
}

func TestGenerateOrderNumber(t *testing.T) {
	at := mustDate(t, "2024-03-09")
	if got := GenerateOrderNumber(42, at); got != "SRV-20240309-00042" {
		t.Errorf("GenerateOrderNumber = %q", got)
	}
}

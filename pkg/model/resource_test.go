package model

import "testing"

func TestPeriodicResourceModel_SupplyBound(t *testing.T) {
	r := PeriodicResourceModel{Period: 5, Budget: 2}
	// Blackout is 2*(5-2) = 6; supply then grows during Θ and pauses for Π-Θ.
	tests := []struct {
		t    Time
		want Time
	}{
		{0, 0}, {3, 0}, {6, 0}, {7, 1}, {8, 2}, {9, 2}, {11, 2}, {12, 3}, {13, 4}, {16, 4}, {18, 6},
	}
	for _, tt := range tests {
		if got := r.SupplyBound(tt.t); got != tt.want {
			t.Errorf("SupplyBound(%d) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestPeriodicResourceModel_FullBandwidth(t *testing.T) {
	r := PeriodicResourceModel{Period: 4, Budget: 4}
	for _, x := range []Time{0, 1, 7, 100} {
		if got := r.SupplyBound(x); got != x {
			t.Errorf("SupplyBound(%d) = %d, want %d", x, got, x)
		}
	}
}

func TestPeriodicResourceModel_LinearBelowExact(t *testing.T) {
	r := PeriodicResourceModel{Period: 7, Budget: 3}
	for x := Time(0); x < 100; x++ {
		if lin := r.LinearSupplyBound(x); lin > float64(r.SupplyBound(x))+1e-9 {
			t.Errorf("LinearSupplyBound(%d) = %v > SupplyBound = %d", x, lin, r.SupplyBound(x))
		}
	}
}

func TestPeriodicResourceModel_ClusterSupply(t *testing.T) {
	tests := []struct {
		name string
		r    PeriodicResourceModel
		want []Time // supply for t = 0, 1, 2, ...
	}{
		// Θ/m' = 3 whole steps of two units; blackout 2(5-3) = 4.
		{"even budget", PeriodicResourceModel{Period: 5, Budget: 6, Concurrency: 2},
			[]Time{0, 0, 0, 0, 0, 2, 4, 6, 6, 6, 8, 10, 12, 12}},
		// One step supplies a single unit; blackout 2(5-2) = 6.
		{"odd budget", PeriodicResourceModel{Period: 5, Budget: 3, Concurrency: 2},
			[]Time{0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 3, 3, 4, 5, 6}},
		{"dedicated pair", PeriodicResourceModel{Period: 1, Budget: 2, Concurrency: 2},
			[]Time{0, 2, 4, 6, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for x, want := range tt.want {
				if got := tt.r.SupplyBound(Time(x)); got != want {
					t.Errorf("SupplyBound(%d) = %d, want %d", x, got, want)
				}
			}
			if b := tt.r.Blackout(); b > 0 && tt.r.SupplyBound(b) != 0 {
				t.Errorf("SupplyBound(Blackout()=%d) = %d, want 0", b, tt.r.SupplyBound(b))
			}
		})
	}
}

func TestPeriodicResourceModel_ClusterSupplyReducesToSingle(t *testing.T) {
	for _, r := range []PeriodicResourceModel{{Period: 5, Budget: 2}, {Period: 7, Budget: 3}, {Period: 4, Budget: 4}, {Period: 9, Budget: 1}} {
		for x := Time(0); x < 60; x++ {
			if got, want := r.clusterSupply(x), r.SupplyBound(x); got != want {
				t.Errorf("%v: clusterSupply(%d) = %d, want %d", r, x, got, want)
			}
		}
	}
}

func TestPeriodicResourceModel_ClusterLinearBelowExact(t *testing.T) {
	for _, r := range []PeriodicResourceModel{
		{Period: 5, Budget: 6, Concurrency: 2},
		{Period: 5, Budget: 3, Concurrency: 2},
		{Period: 7, Budget: 11, Concurrency: 3},
	} {
		var prev Time
		for x := Time(0); x < 120; x++ {
			sbf := r.SupplyBound(x)
			if lin := r.LinearSupplyBound(x); lin > float64(sbf)+1e-9 {
				t.Errorf("%v: LinearSupplyBound(%d) = %v > SupplyBound = %d", r, x, lin, sbf)
			}
			if sbf < prev {
				t.Errorf("%v: SupplyBound(%d) = %d decreases from %d", r, x, sbf, prev)
			}
			prev = sbf
		}
	}
}

func TestPeriodicResourceModel_String(t *testing.T) {
	if got := (PeriodicResourceModel{Period: 5, Budget: 2}).String(); got != "PRM(Π=5, Θ=2)" {
		t.Errorf("String() = %q", got)
	}
	if got := (PeriodicResourceModel{Period: 5, Budget: 6, Concurrency: 2}).String(); got != "MPR(Π=5, Θ=6, m'=2)" {
		t.Errorf("String() = %q", got)
	}
}

func TestPeriodicResourceModel_Validate(t *testing.T) {
	tests := []struct {
		r       PeriodicResourceModel
		wantErr bool
	}{
		{PeriodicResourceModel{Period: 5, Budget: 2}, false},
		{PeriodicResourceModel{Period: 5, Budget: 5}, false},
		{PeriodicResourceModel{Period: 5, Budget: 0}, true},
		{PeriodicResourceModel{Period: 5, Budget: 6}, true},
		{PeriodicResourceModel{Period: 0, Budget: 0}, true},
		{PeriodicResourceModel{Period: 5, Budget: 10, Concurrency: 2}, false},
		{PeriodicResourceModel{Period: 5, Budget: 11, Concurrency: 2}, true},
		{PeriodicResourceModel{Period: 5, Budget: 2, Concurrency: -1}, true},
	}
	for _, tt := range tests {
		if err := tt.r.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%v) error = %v, wantErr %v", tt.r, err, tt.wantErr)
		}
	}
}

func TestPeriodicResourceModel_Bandwidth(t *testing.T) {
	a := PeriodicResourceModel{Period: 10, Budget: 3}
	b := PeriodicResourceModel{Period: 20, Budget: 6}
	c := PeriodicResourceModel{Period: 3, Budget: 1}
	if !a.SameBandwidth(b) {
		t.Error("SameBandwidth() = false, want true")
	}
	if !a.LessBandwidth(c) {
		t.Error("3/10 should be less than 1/3")
	}
	if c.LessBandwidth(a) {
		t.Error("1/3 should not be less than 3/10")
	}
}

func TestFound_DoesNotAlias(t *testing.T) {
	r := PeriodicResourceModel{Period: 5, Budget: 2}
	res := Found(r)
	r.Budget = 5
	if res.Interface.Budget != 2 {
		t.Errorf("Interface.Budget = %d, want 2", res.Interface.Budget)
	}
}

func TestAnalysisResult_ProvesInfeasible(t *testing.T) {
	r := NotSchedulable(0, "bound exceeded")
	r.Strength = StrengthSufficient
	if r.ProvesInfeasible() {
		t.Error("sufficient negative must not prove infeasibility")
	}
	r.Strength = StrengthExact
	if !r.ProvesInfeasible() {
		t.Error("exact negative should prove infeasibility")
	}
}

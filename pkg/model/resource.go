package model

import "fmt"

// PeriodicResourceModel is a reservation that supplies Budget units of
// processor time every Period. With Concurrency above one it is a
// multiprocessor periodic resource: the budget may be consumed on up to
// Concurrency processors at once. Values are immutable once created.
type PeriodicResourceModel struct {
	Period      Time `json:"period"`
	Budget      Time `json:"budget"`
	Concurrency int  `json:"concurrency,omitempty"`
}

func (r PeriodicResourceModel) String() string {
	if r.Cores() > 1 {
		return fmt.Sprintf("MPR(Π=%d, Θ=%d, m'=%d)", r.Period, r.Budget, r.Concurrency)
	}
	return fmt.Sprintf("PRM(Π=%d, Θ=%d)", r.Period, r.Budget)
}

// Cores returns the concurrency bound; zero means one.
func (r PeriodicResourceModel) Cores() int {
	return max(1, r.Concurrency)
}

// Validate checks 0 < Budget <= Cores*Period.
func (r PeriodicResourceModel) Validate() error {
	if r.Period <= 0 {
		return &ValueError{Task: -1, Field: "period", Value: int64(r.Period), Message: "must be positive"}
	}
	if r.Concurrency < 0 {
		return &ValueError{Task: -1, Field: "concurrency", Value: int64(r.Concurrency), Message: "must not be negative"}
	}
	if r.Budget <= 0 || r.Budget > Time(r.Cores())*r.Period {
		if r.Cores() > 1 {
			return &ValueError{Task: -1, Field: "budget", Value: int64(r.Budget), Message: "must be in (0, concurrency*period]"}
		}
		return &ValueError{Task: -1, Field: "budget", Value: int64(r.Budget), Message: "must be in (0, period]"}
	}
	return nil
}

// Bandwidth returns Budget/Period, which exceeds one only for a
// multiprocessor resource.
func (r PeriodicResourceModel) Bandwidth() float64 {
	return float64(r.Budget) / float64(r.Period)
}

// Blackout returns the longest interval with no guaranteed supply,
// 2(Π-⌈Θ/m'⌉).
func (r PeriodicResourceModel) Blackout() Time {
	m := Time(r.Cores())
	return 2 * (r.Period - (r.Budget+m-1)/m)
}

// SupplyBound returns the minimum supply guaranteed in any interval of
// length t (Shin & Lee 2003 for one processor).
func (r PeriodicResourceModel) SupplyBound(t Time) Time {
	if r.Cores() > 1 {
		return r.clusterSupply(t)
	}
	gap := r.Period - r.Budget
	if t < gap {
		return 0
	}
	k := (t - gap) / r.Period
	return k*r.Budget + max(0, t-2*gap-k*r.Period)
}

// clusterSupply is the supply bound of a multiprocessor resource whose
// budget is placed anywhere inside each period, at most m' units per time
// unit. The worst window starts right after one period's supply and meets
// the next supply as late as possible; the partial periods at both ends
// are balanced because the supply on an edge of length z is
// max(0, m'z - (m'Π-Θ)).
func (r PeriodicResourceModel) clusterSupply(t Time) Time {
	if t <= 0 {
		return 0
	}
	m := Time(r.Cores())
	slack := m*r.Period - r.Budget
	edge := func(z Time) Time { return max(0, m*z-slack) }
	ends := func(c Time) Time { return edge(c/2) + edge(c-c/2) }
	q, rest := t/r.Period, t%r.Period
	supply := q*r.Budget + ends(rest)
	if q >= 1 {
		supply = min(supply, (q-1)*r.Budget+ends(rest+r.Period))
	}
	return supply
}

// LinearSupplyBound returns the linear lower bound
// (Θ/Π)(t - 2(Π-Θ/m')), clamped at zero.
func (r PeriodicResourceModel) LinearSupplyBound(t Time) float64 {
	gap := 2 * (float64(r.Period) - float64(r.Budget)/float64(r.Cores()))
	v := r.Bandwidth() * (float64(t) - gap)
	return max(0, v)
}

// LessBandwidth reports whether r has strictly lower bandwidth than o,
// compared exactly. Concurrency is not compared.
func (r PeriodicResourceModel) LessBandwidth(o PeriodicResourceModel) bool {
	return int64(r.Budget)*int64(o.Period) < int64(o.Budget)*int64(r.Period)
}

// SameBandwidth reports whether r and o have equal bandwidth.
func (r PeriodicResourceModel) SameBandwidth(o PeriodicResourceModel) bool {
	return int64(r.Budget)*int64(o.Period) == int64(o.Budget)*int64(r.Period)
}

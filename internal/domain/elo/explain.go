package elo

// PairwiseBreakdown carries the intermediate values of a 1v1 update.
type PairwiseBreakdown struct {
	ExpectedA float64
	DeltaA    float64
	NewA      float64
	NewB      float64
}

// ExplainPairwise applies the 1v1 law and reports its working.
func ExplainPairwise(ra, rb float64, sa Outcome) (PairwiseBreakdown, error) {
	d, err := PairwiseDelta(ra, rb, sa)
	if err != nil {
		return PairwiseBreakdown{}, err
	}
	return PairwiseBreakdown{ExpectedA: Expected(ra, rb), DeltaA: d, NewA: ra + d, NewB: rb - d}, nil
}

// TeamBreakdown carries the intermediate values of a team update.
type TeamBreakdown struct {
	MeanA     float64
	MeanB     float64
	ExpectedA float64
	Delta     TeamDelta
	NewA      []float64
	NewB      []float64
}

// ExplainTeam applies the team-average law and reports its working.
func ExplainTeam(teamA, teamB []float64, sa Outcome) (TeamBreakdown, error) {
	d, err := ApplyTeamResult(teamA, teamB, sa)
	if err != nil {
		return TeamBreakdown{}, err
	}
	ma, _ := Mean(teamA)
	mb, _ := Mean(teamB)
	out := TeamBreakdown{
		MeanA:     ma,
		MeanB:     mb,
		ExpectedA: Expected(ma, mb),
		Delta:     d,
		NewA:      make([]float64, len(teamA)),
		NewB:      make([]float64, len(teamB)),
	}
	for i, r := range teamA {
		out.NewA[i] = r + d.A
	}
	for i, r := range teamB {
		out.NewB[i] = r + d.B
	}
	return out, nil
}

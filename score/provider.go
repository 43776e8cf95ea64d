package score

// Provider is the score collaborator: parsing the source format, unrolling
// written repeats/endings into a linear measure sequence, assigning every
// note its clock start and duration, and merging ties. The engine only ever
// calls Load; the pipeline stages are separate so providers can share them.
type Provider interface {
	Parse(source string) (*Score, error)
	Unroll(*Score) *Score
	AssignTimes(*Score) *Score
	MergeTies(*Score) *Score
}

// Load runs the full provider pipeline on one source.
func Load(p Provider, source string) (*Score, error) {
	s, err := p.Parse(source)
	if err != nil {
		return nil, err
	}
	return p.MergeTies(p.AssignTimes(p.Unroll(s))), nil
}

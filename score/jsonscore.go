package score

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
)

// JSONProvider reads scores from a JSON file whose times are already linear
// clocks ("3/2" style rationals). It stands in for a real notation parser:
// unrolling, time assignment and tie merging have been done upstream, so
// those stages only normalize ordering.
type JSONProvider struct{}

type jsonNote struct {
	Start    string   `json:"start"`
	Duration string   `json:"duration"`
	Pitch    uint8    `json:"pitch"`
	Ignore   bool     `json:"ignore,omitempty"`
	Grace    bool     `json:"grace,omitempty"`
	Mods     []string `json:"mods,omitempty"`
}

type jsonMeasure struct {
	Number   string     `json:"number"`
	Start    string     `json:"start"`
	Duration string     `json:"duration"`
	Time     *[2]uint8  `json:"time,omitempty"`
	Tempo    float64    `json:"tempo,omitempty"`
	Notes    []jsonNote `json:"notes"`
}

type jsonPart struct {
	ID       string        `json:"id"`
	Measures []jsonMeasure `json:"measures"`
}

type jsonScore struct {
	Parts []jsonPart `json:"parts"`
}

func (JSONProvider) Parse(source string) (*Score, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	var js jsonScore
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("score: parse %s: %w", source, err)
	}

	s := &Score{}
	for _, jp := range js.Parts {
		part := Part{ID: jp.ID}
		for i, jm := range jp.Measures {
			m := Measure{
				Number: jm.Number,
				Index:  i,
				Tempo:  jm.Tempo,
			}
			if m.Start, err = parseClocks(jm.Start); err != nil {
				return nil, fmt.Errorf("score: measure %s start: %w", jm.Number, err)
			}
			if m.Duration, err = parseClocks(jm.Duration); err != nil {
				return nil, fmt.Errorf("score: measure %s duration: %w", jm.Number, err)
			}
			if jm.Time != nil {
				m.Time = &TimeSig{Beats: jm.Time[0], BeatType: jm.Time[1]}
			}
			for _, jn := range jm.Notes {
				n := Note{Pitch: jn.Pitch, Ignore: jn.Ignore, Grace: jn.Grace, Mods: jn.Mods}
				if n.Start, err = parseClocks(jn.Start); err != nil {
					return nil, fmt.Errorf("score: measure %s note start: %w", jm.Number, err)
				}
				if n.Duration, err = parseClocks(jn.Duration); err != nil {
					return nil, fmt.Errorf("score: measure %s note duration: %w", jm.Number, err)
				}
				m.Notes = append(m.Notes, n)
			}
			part.Measures = append(part.Measures, m)
		}
		s.Parts = append(s.Parts, part)
	}
	return s, nil
}

func (JSONProvider) Unroll(s *Score) *Score { return s }

func (JSONProvider) AssignTimes(s *Score) *Score { return s }

// MergeTies only re-sorts note lists here; tie merging proper happened in
// the tool that produced the JSON. The sort is stable so chord ordering
// established upstream survives.
func (JSONProvider) MergeTies(s *Score) *Score {
	for pi := range s.Parts {
		for mi := range s.Parts[pi].Measures {
			notes := s.Parts[pi].Measures[mi].Notes
			sort.SliceStable(notes, func(i, j int) bool {
				return notes[i].Start.Cmp(notes[j].Start) < 0
			})
		}
	}
	return s
}

func parseClocks(s string) (*big.Rat, error) {
	if s == "" {
		return new(big.Rat), nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("bad clock value %q", s)
	}
	return r, nil
}

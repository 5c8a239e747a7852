package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Stats holds the percentile summary of a single result node.
type Stats struct {
	P5   float64
	P50  float64
	P95  float64
	Mean float64
}

// RunMetadata describes how a result was produced.
type RunMetadata struct {
	Iterations int
	Discarded  int
	// Seed is nil when the caller did not pin the generator.
	Seed *int64
}

// Effective returns the number of committed iterations.
func (m RunMetadata) Effective() int {
	return m.Iterations - m.Discarded
}

// SimulationResult is the output of one Monte-Carlo run.
type SimulationResult struct {
	Results  map[string]Stats
	Metadata RunMetadata
}

type statsJSON struct {
	P5   statValue `json:"p5"`
	P50  statValue `json:"p50"`
	P95  statValue `json:"p95"`
	Mean statValue `json:"mean"`
}

type metadataJSON struct {
	Iterations int    `json:"iterations"`
	Discarded  int    `json:"discarded"`
	Seed       *int64 `json:"seed"`
}

type resultJSON struct {
	Results  map[string]statsJSON `json:"results"`
	Metadata metadataJSON         `json:"metadata"`
}

// statValue encodes one statistic. NaN (no committed values) is null;
// infinities, which JSON numbers cannot hold, are the strings "+Inf" and
// "-Inf" so an overflowing result stays distinguishable from an empty one.
type statValue float64

func (v statValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (v *statValue) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null":
		*v = statValue(math.NaN())
		return nil
	case `"+Inf"`, `"Inf"`:
		*v = statValue(math.Inf(1))
		return nil
	case `"-Inf"`:
		*v = statValue(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("statistic must be a number, null, \"+Inf\" or \"-Inf\": %w", err)
	}
	*v = statValue(f)
	return nil
}

// MarshalJSON renders the results document:
//
//	{"results": {id: {"p5","p50","p95","mean"}}, "metadata": {"iterations","discarded","seed"}}
func (r SimulationResult) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Results: make(map[string]statsJSON, len(r.Results)),
		Metadata: metadataJSON{
			Iterations: r.Metadata.Iterations,
			Discarded:  r.Metadata.Discarded,
			Seed:       r.Metadata.Seed,
		},
	}
	for id, s := range r.Results {
		out.Results[id] = statsJSON{
			P5:   statValue(s.P5),
			P50:  statValue(s.P50),
			P95:  statValue(s.P95),
			Mean: statValue(s.Mean),
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a results document produced by MarshalJSON.
func (r *SimulationResult) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Results = make(map[string]Stats, len(in.Results))
	for id, s := range in.Results {
		r.Results[id] = Stats{
			P5:   float64(s.P5),
			P50:  float64(s.P50),
			P95:  float64(s.P95),
			Mean: float64(s.Mean),
		}
	}
	r.Metadata = RunMetadata{
		Iterations: in.Metadata.Iterations,
		Discarded:  in.Metadata.Discarded,
		Seed:       in.Metadata.Seed,
	}
	return nil
}

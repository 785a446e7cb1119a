// Package synth provides the bundled sample league and a generator for
// random affiliation datasets used by tests and the probe tool.
package synth

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/okian/touchline/internal/adapters/repository"
)

//go:embed league.yaml
var leagueYAML []byte

// LeagueYAML returns the raw sample league document.
func LeagueYAML() []byte {
	return bytes.Clone(leagueYAML)
}

// League returns the sample league: eight people, two clubs and two national
// teams covering every connection kind.
func League() repository.Dataset {
	ds, err := repository.DecodeDataset(bytes.NewReader(leagueYAML))
	if err != nil {
		panic(fmt.Sprintf("synth: bundled league is invalid: %v", err))
	}
	return ds
}

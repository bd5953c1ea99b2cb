package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/caseproof/custody-core/pkg/config"
	"github.com/caseproof/custody-core/pkg/contract"
	"github.com/caseproof/custody-core/pkg/jurisdiction"
)

// runClassifyCmd implements `custody classify`.
//
// Parses --coords as semicolon-separated "lat,lon" pairs and prints the
// jurisdiction assignment as JSON.
func runClassifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("classify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var coords, table string
	cfg := config.Load()
	cmd.StringVar(&coords, "coords", "", `Coordinates as "lat,lon;lat,lon" (REQUIRED)`)
	cmd.StringVar(&table, "table", cfg.JurisdictionTable, "Optional YAML region table override")

	if err := cmd.Parse(args); err != nil {
		return 1
	}
	if coords == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --coords is required")
		return 1
	}

	parsed, err := parseCoords(coords)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	router := jurisdiction.NewDefaultRouter()
	if table != "" {
		regions, err := jurisdiction.LoadTable(table)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot load region table: %v\n", err)
			return 1
		}
		router = jurisdiction.NewRouter(regions)
	}

	data, _ := json.MarshalIndent(router.Classify(parsed), "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}

func parseCoords(raw string) ([]contract.Coordinate, error) {
	var out []contract.Coordinate
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		latStr, lonStr, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("expected lat,lon, got %q", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q: %w", latStr, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q: %w", lonStr, err)
		}
		out = append(out, contract.Coordinate{Latitude: lat, Longitude: lon})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no coordinates in %q", raw)
	}
	return out, nil
}

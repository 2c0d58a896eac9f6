// Command clue-cli runs a single clustering batch read from a CSV or JSON
// point file against one detector-layer preset, printing the resulting
// cluster labeling (and, with -repeat, a trimmed timing summary) to
// stdout.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hep-clue/clue/pkg/clue"
	"github.com/hep-clue/clue/pkg/geometry"
	"github.com/hep-clue/clue/pkg/ingest"
	"github.com/hep-clue/clue/pkg/kernel"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "cluster":
		handleCluster(os.Args[2:])
	case "version":
		fmt.Printf("clue-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}
}

// jsonPoint is the shape a JSON input file's "points" array elements take.
type jsonPoint struct {
	Coords   []float32 `json:"coords"`
	AddCoord float32   `json:"add_coord"`
	Weight   float32   `json:"weight"`
}

type jsonInput struct {
	Points []jsonPoint `json:"points"`
}

func handleCluster(args []string) {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	inputFile := fs.String("in", "", "input point file (.csv or .json)")
	preset := fs.String("preset", "CLD-Barrel", "detector-layer preset (see pkg/geometry.Presets)")
	dc := fs.Float64("dc", 4, "critical distance")
	rhoc := fs.Float64("rhoc", 8, "critical density")
	outlierFactor := fs.Float64("outlier-factor", 2, "outlier/nh search-radius multiplier")
	parallel := fs.Bool("parallel", true, "use the parallel execution mode")
	blockSize := fs.Int("block-size", 256, "worker-pool block size under parallel execution")
	repeat := fs.Int("repeat", 1, "number of times to repeat the batch, for timing statistics")
	output := fs.String("out", "", "output file for the per-point labeling JSON (default: stdout)")
	fs.Parse(args)

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "cluster: -in is required")
		os.Exit(1)
	}
	if *repeat < 1 {
		*repeat = 1
	}

	coords, addCoord, weight, err := readPoints(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cluster: %v\n", err)
		os.Exit(1)
	}

	if _, ok := geometry.Presets[*preset]; !ok {
		fmt.Fprintf(os.Stderr, "cluster: unknown preset %q (available: %s)\n",
			*preset, strings.Join(geometry.PresetNames(), ", "))
		os.Exit(1)
	}

	params := clue.Params{
		DC:            float32(*dc),
		RhoC:          float32(*rhoc),
		OutlierFactor: float32(*outlierFactor),
		BlockSize:     *blockSize,
		Kernel:        kernel.Flat{C: 1},
	}
	if *parallel {
		params.Mode = clue.Parallel
	} else {
		params.Mode = clue.Sequential
	}

	engine, err := clue.NewEngine(*preset, params, len(coords), 100, 100, 40)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cluster: %v\n", err)
		os.Exit(1)
	}

	var samples []time.Duration
	var clusterIndex []int
	var isSeed []bool
	for i := 0; i < *repeat; i++ {
		start := time.Now()
		if !engine.ClearAndSetPoints(coords, addCoord, weight) {
			fmt.Fprintln(os.Stderr, "cluster: empty point batch")
			os.Exit(1)
		}
		clusterIndex, isSeed = engine.MakeClusters()
		samples = append(samples, time.Since(start))
	}

	if *repeat > 1 {
		stats := ingest.NewRunStats(samples)
		fmt.Fprintf(os.Stderr, "timing: mean=%.3fms stddev=%.3fms samples=%d excluded=%d\n",
			stats.Mean, stats.StdDev, stats.NSamples, stats.NExcluded)
		for _, st := range engine.StageTimings() {
			fmt.Fprintf(os.Stderr, "  last %-14s %s\n", st.Stage, st.Duration)
		}
	}

	sat := engine.Saturations()
	if sat.Tiles > 0 || sat.Seeds > 0 || sat.Followers > 0 || sat.DFSStack > 0 {
		fmt.Fprintf(os.Stderr, "warning: saturation events - tiles=%d seeds=%d followers=%d dfs_stack=%d\n",
			sat.Tiles, sat.Seeds, sat.Followers, sat.DFSStack)
	}

	result := struct {
		ClusterIndex []int  `json:"cluster_index"`
		IsSeed       []bool `json:"is_seed"`
	}{ClusterIndex: clusterIndex, IsSeed: isSeed}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cluster: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "cluster: %v\n", err)
		os.Exit(1)
	}
}

// readPoints loads a batch of points from a CSV or JSON file, picked by
// file extension. CSV columns are "x,y[,addCoord],weight" (addCoord
// optional for a 2-D space: x,y,weight).
func readPoints(path string) (coords [][]float32, addCoord, weight []float32, err error) {
	switch {
	case strings.HasSuffix(path, ".json"):
		return readPointsJSON(path)
	case strings.HasSuffix(path, ".csv"):
		return readPointsCSV(path)
	default:
		return nil, nil, nil, fmt.Errorf("unsupported input file extension (want .csv or .json): %s", path)
	}
}

func readPointsJSON(path string) (coords [][]float32, addCoord, weight []float32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	var in jsonInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	coords = make([][]float32, len(in.Points))
	addCoord = make([]float32, len(in.Points))
	weight = make([]float32, len(in.Points))
	for i, p := range in.Points {
		coords[i] = p.Coords
		addCoord[i] = p.AddCoord
		weight[i] = p.Weight
	}
	return coords, addCoord, weight, nil
}

// readPointsCSV reads "x,y,weight" or "x,y,addCoord,weight" rows (2-D
// space, which is all five detector presets use); the last column is
// always weight, everything before it but the first two columns is the
// auxiliary coordinate.
func readPointsCSV(path string) (coords [][]float32, addCoord, weight []float32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	for lineNo, row := range rows {
		if len(row) < 3 {
			return nil, nil, nil, fmt.Errorf("%s:%d: expected at least 3 columns (x,y,weight), got %d", path, lineNo+1, len(row))
		}
		x, err := strconv.ParseFloat(row[0], 32)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%d: %w", path, lineNo+1, err)
		}
		y, err := strconv.ParseFloat(row[1], 32)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%d: %w", path, lineNo+1, err)
		}

		var aux float64
		weightCol := row[2]
		if len(row) >= 4 {
			aux, err = strconv.ParseFloat(row[2], 32)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("%s:%d: %w", path, lineNo+1, err)
			}
			weightCol = row[3]
		}
		w, err := strconv.ParseFloat(weightCol, 32)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s:%d: %w", path, lineNo+1, err)
		}

		coords = append(coords, []float32{float32(x), float32(y)})
		addCoord = append(addCoord, float32(aux))
		weight = append(weight, float32(w))
	}
	return coords, addCoord, weight, nil
}

func showUsage() {
	fmt.Println("clue-cli - batch clustering from a CSV/JSON point file")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clue-cli cluster -in points.json [options]")
	fmt.Println("  clue-cli version")
	fmt.Println("  clue-cli help")
	fmt.Println()
	fmt.Println("cluster options:")
	fmt.Println("  -in PATH              Input point file (.csv or .json)")
	fmt.Println("  -preset NAME          Detector-layer preset (default: CLD-Barrel)")
	fmt.Println("  -dc FLOAT             Critical distance (default: 4)")
	fmt.Println("  -rhoc FLOAT           Critical density (default: 8)")
	fmt.Println("  -outlier-factor FLOAT Outlier/nh search-radius multiplier (default: 2)")
	fmt.Println("  -parallel BOOL        Use the parallel execution mode (default: true)")
	fmt.Println("  -block-size INT       Worker-pool block size (default: 256)")
	fmt.Println("  -repeat INT           Repeat the batch N times and print timing stats")
	fmt.Println("  -out PATH             Write the per-point labeling JSON here (default: stdout)")
	fmt.Println()
	fmt.Println("JSON input shape:")
	fmt.Println(`  {"points": [{"coords": [x, y], "add_coord": 0, "weight": 1.0}, ...]}`)
	fmt.Println()
	fmt.Println("CSV input shape (2-D presets only): x,y,weight or x,y,addCoord,weight")
}

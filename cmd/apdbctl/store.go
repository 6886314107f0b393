package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ap-survey/apdb/internal/apdberr"
	"github.com/ap-survey/apdb/internal/frame"
)

var (
	storeObjectsFile       string
	storeSourcesFile       string
	storeForcedSourcesFile string
	storeVisitTime         string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest one visit's rows from JSONL fixtures",
	Long: `store replays a demo visit: each --objects/--sources/--forced-sources
flag names a JSONL file of row objects (one JSON object per line,
matching the logical table's column names), assembled into a frame and
passed to the configured backend's Store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		store, _, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		visitTime, err := parseSince(storeVisitTime, time.Now())
		if err != nil {
			return err
		}

		objects, err := loadFrameJSONL(storeObjectsFile)
		if err != nil {
			return err
		}
		sources, err := loadFrameJSONL(storeSourcesFile)
		if err != nil {
			return err
		}
		forcedSources, err := loadFrameJSONL(storeForcedSourcesFile)
		if err != nil {
			return err
		}

		if err := store.Store(ctx, visitTime, objects, sources, forcedSources); err != nil {
			return err
		}
		fmt.Println("visit stored")
		return nil
	},
}

func init() {
	storeCmd.Flags().StringVar(&storeObjectsFile, "objects", "", "JSONL file of DiaObject rows")
	storeCmd.Flags().StringVar(&storeSourcesFile, "sources", "", "JSONL file of DiaSource rows")
	storeCmd.Flags().StringVar(&storeForcedSourcesFile, "forced-sources", "", "JSONL file of DiaForcedSource rows")
	storeCmd.Flags().StringVar(&storeVisitTime, "visit-time", "", "visit timestamp (RFC3339 or natural language, default now)")
}

// loadFrameJSONL reads path as newline-delimited JSON objects and
// assembles them into a frame.Frame with the union of every object's
// keys as columns. Returns nil (no-op for Store) when path is empty,
// mirroring the teacher's loadIssuesFromJSONL line-by-line scanner.
func loadFrameJSONL(path string) (*frame.Frame, error) {
	if path == "" {
		return nil, nil
	}

	// nolint:gosec // G304: path is an operator-supplied CLI flag, not untrusted input.
	file, err := os.Open(path)
	if err != nil {
		return nil, apdberr.NewDataError("loadFrameJSONL", "opening %s: %v", path, err)
	}
	defer file.Close()

	var rows []map[string]any
	var order []string
	seen := map[string]bool{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, apdberr.NewDataError("loadFrameJSONL", "%s line %d: %v", path, lineNum, err)
		}
		for k := range row {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, apdberr.NewDataError("loadFrameJSONL", "%s: %v", path, err)
	}

	typed := make([]frame.TypedColumn, len(order))
	for i, c := range order {
		values := make([]frame.Value, len(rows))
		for r, row := range rows {
			values[r] = row[c]
		}
		typed[i] = frame.TypedColumn{Name: c, Values: values}
	}
	return frame.NewFrame(typed)
}

package costgraph

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadFiles builds a Graph from the four CSV files named in spec §6:
// storage.csv (tag,storage_gb_mo,put_price,get_price),
// cost.csv (src,dst,egress_gb),
// throughput.csv (src,dst,mb_s),
// complete_latency.csv (src,dst,latency_ms).
//
// No third-party CSV/graph library in the retrieved corpus models
// this domain, so the loader uses the standard library's
// encoding/csv directly (documented in DESIGN.md).
func LoadFiles(storageCSV, costCSV, throughputCSV, latencyCSV string) (*Graph, error) {
	g := New()
	if err := loadStorage(g, storageCSV); err != nil {
		return nil, err
	}
	if err := loadCost(g, costCSV); err != nil {
		return nil, err
	}
	if err := loadThroughput(g, throughputCSV); err != nil {
		return nil, err
	}
	if err := loadLatency(g, latencyCSV); err != nil {
		return nil, err
	}
	return g, nil
}

func openCSV(path string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	return r, f, nil
}

func splitTag(tag string) (cloud, region string) {
	parts := strings.SplitN(tag, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return tag, ""
}

func loadStorage(g *Graph, path string) error {
	if path == "" {
		return nil
	}
	r, f, err := openCSV(path)
	if err != nil {
		return fmt.Errorf("costgraph: storage csv: %w", err)
	}
	defer f.Close()
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("costgraph: storage csv: %w", err)
		}
		if first && isHeader(rec) {
			first = false
			continue
		}
		first = false
		if len(rec) < 4 {
			continue
		}
		storagePrice, _ := strconv.ParseFloat(rec[1], 64)
		putPrice, _ := strconv.ParseFloat(rec[2], 64)
		getPrice, _ := strconv.ParseFloat(rec[3], 64)
		cloud, region := splitTag(rec[0])
		g.AddNode(Node{
			Tag:          rec[0],
			Cloud:        cloud,
			Region:       region,
			StorageGBMo:  storagePrice,
			PutPriceUnit: putPrice,
			GetPriceUnit: getPrice,
		})
	}
	return nil
}

func loadCost(g *Graph, path string) error {
	if path == "" {
		return nil
	}
	return loadEdgeCSV(path, func(src, dst string, v float64) {
		e, ok := g.Edge(src, dst)
		if !ok {
			e = Edge{Src: src, Dst: dst}
		}
		e.EgressGB = v
		g.AddEdge(e)
	})
}

func loadThroughput(g *Graph, path string) error {
	if path == "" {
		return nil
	}
	return loadEdgeCSV(path, func(src, dst string, v float64) {
		e, ok := g.Edge(src, dst)
		if !ok {
			e = Edge{Src: src, Dst: dst}
		}
		e.ThroughputMBs = v
		g.AddEdge(e)
	})
}

func loadLatency(g *Graph, path string) error {
	if path == "" {
		return nil
	}
	return loadEdgeCSV(path, func(src, dst string, v float64) {
		e, ok := g.Edge(src, dst)
		if !ok {
			e = Edge{Src: src, Dst: dst}
		}
		e.LatencyMs = v
		g.AddEdge(e)
	})
}

func loadEdgeCSV(path string, set func(src, dst string, v float64)) error {
	r, f, err := openCSV(path)
	if err != nil {
		return fmt.Errorf("costgraph: %s: %w", path, err)
	}
	defer f.Close()
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("costgraph: %s: %w", path, err)
		}
		if first && isHeader(rec) {
			first = false
			continue
		}
		first = false
		if len(rec) < 3 {
			continue
		}
		v, _ := strconv.ParseFloat(rec[2], 64)
		set(rec[0], rec[1], v)
	}
	return nil
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(rec[len(rec)-1], 64)
	return err != nil
}

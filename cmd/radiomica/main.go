package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"radiomica/internal/phantom"
	"radiomica/pkg/config"
	"radiomica/pkg/extraction"
	"radiomica/pkg/volume"
)

func main() {
	// Parse command line arguments
	volumePath := flag.String("volume", "", "Raw little-endian float64 volume file")
	maskPath := flag.String("mask", "", "Raw uint8 mask file (non-zero = inside ROI)")
	dimsFlag := flag.String("dims", "", "Volume dimensions as X,Y,Z")
	spacingFlag := flag.String("spacing", "1,1,1", "Voxel spacing in mm as X,Y,Z")
	configPath := flag.String("config", "radiomica.yaml", "Configuration file path")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	demo := flag.Bool("demo", false, "Run on a built-in synthetic volume")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var vol *volume.Volume
	var mask *volume.Mask
	switch {
	case *demo:
		vol, mask = phantom.Sphere(32, 12)
	case *volumePath != "" && *maskPath != "" && *dimsFlag != "":
		vol, mask, err = loadRaw(*volumePath, *maskPath, *dimsFlag, *spacingFlag)
		if err != nil {
			log.Fatalf("Failed to load input: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	extractor, err := extraction.New(settings)
	if err != nil {
		log.Fatalf("Failed to build extractor: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("RADIOMICA FEATURE EXTRACTION")
	fmt.Println("================================")
	fmt.Printf("Volume: %dx%dx%d voxels, %d in ROI\n",
		vol.Dims.X, vol.Dims.Y, vol.Dims.Z, mask.Count())

	startTime := time.Now()
	results, err := extractor.Run(context.Background(), vol, mask)
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	elapsed := time.Since(startTime)

	for _, r := range results {
		header := r.Image
		if r.Scheme != "" {
			header += " / " + r.Scheme
		}
		fmt.Printf("\n[%s]\n", header)

		names := make([]string, 0, len(r.Features))
		for name := range r.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-48s %.6g\n", name, r.Features[name])
		}
	}

	fmt.Printf("\nExtracted %d feature sets in %.2f seconds\n", len(results), elapsed.Seconds())
}

// loadRaw reads a raw float64 volume and uint8 mask of the given dimensions.
func loadRaw(volumePath, maskPath, dimsFlag, spacingFlag string) (*volume.Volume, *volume.Mask, error) {
	dims, err := parseDims(dimsFlag)
	if err != nil {
		return nil, nil, err
	}
	spacing, err := parseSpacing(spacingFlag)
	if err != nil {
		return nil, nil, err
	}
	n := dims.Count()

	raw, err := os.ReadFile(volumePath)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) != 8*n {
		return nil, nil, fmt.Errorf("volume file holds %d bytes, want %d for %s", len(raw), 8*n, dimsFlag)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	v, err := volume.NewVolume(dims, spacing, data)
	if err != nil {
		return nil, nil, err
	}

	rawMask, err := os.ReadFile(maskPath)
	if err != nil {
		return nil, nil, err
	}
	if len(rawMask) != n {
		return nil, nil, fmt.Errorf("mask file holds %d bytes, want %d for %s", len(rawMask), n, dimsFlag)
	}
	bits := make([]bool, n)
	for i, b := range rawMask {
		bits[i] = b != 0
	}
	m, err := volume.NewMask(dims, spacing, bits)
	if err != nil {
		return nil, nil, err
	}
	return v, m, nil
}

func parseDims(s string) (volume.Dims, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return volume.Dims{}, fmt.Errorf("dims %q: want X,Y,Z", s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return volume.Dims{}, fmt.Errorf("dims %q: %w", s, err)
		}
		vals[i] = v
	}
	return volume.Dims{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

func parseSpacing(s string) (volume.Spacing, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return volume.Spacing{}, fmt.Errorf("spacing %q: want X,Y,Z", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return volume.Spacing{}, fmt.Errorf("spacing %q: %w", s, err)
		}
		vals[i] = v
	}
	return volume.Spacing{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// Command frame-plot renders an exported frame dump into PNG time-series
// plots, one for the smoothed activation and one for the raw conditioned
// signal, with both channels overlaid.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/emg.report/internal/collector"
	"github.com/banshee-data/emg.report/internal/units"
)

var channelColors = [2]color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
}

// traces holds one XY series per channel.
type traces [2]plotter.XYs

func main() {
	var inFile string
	var outDir string
	var device string
	var unitsFlag string

	flag.StringVar(&inFile, "in", "", "path to an exported frames JSON file")
	flag.StringVar(&outDir, "out", "", "output directory for PNG plots (default: alongside the input)")
	flag.StringVar(&device, "device", "", "only plot frames from this device")
	flag.StringVar(&unitsFlag, "units", units.Counts, "amplitude units for the y axis")
	flag.Parse()

	if inFile == "" {
		log.Fatalf("in must be provided")
	}
	if !units.IsValid(unitsFlag) {
		log.Fatalf("invalid units %q (valid: %s)", unitsFlag, units.GetValidUnitsString())
	}

	data, err := os.ReadFile(inFile)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	frames, err := loadFrames(data)
	if err != nil {
		log.Fatalf("parse input: %v", err)
	}

	ema, raw, count := buildTraces(frames, device, unitsFlag)
	if count == 0 {
		log.Fatalf("no samples to plot in %s", inFile)
	}
	fmt.Printf("plotting %d samples from %d frames\n", count, len(frames))

	if outDir == "" {
		outDir = filepath.Dir(inFile)
	} else if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(inFile), filepath.Ext(inFile))

	emaFile := filepath.Join(outDir, base+"_activation.png")
	if err := renderPlot("Muscle Activation (EMA)", unitsFlag, ema, emaFile); err != nil {
		log.Fatalf("render activation plot: %v", err)
	}
	fmt.Printf("wrote %s\n", emaFile)

	rawFile := filepath.Join(outDir, base+"_raw.png")
	if err := renderPlot("Conditioned Signal (raw)", unitsFlag, raw, rawFile); err != nil {
		log.Fatalf("render raw plot: %v", err)
	}
	fmt.Printf("wrote %s\n", rawFile)
}

// loadFrames accepts either an export document or a bare stored-frame array,
// the shape served by the collector's recent-frames endpoint.
func loadFrames(data []byte) ([]*collector.StoredFrame, error) {
	var doc collector.HistoryExport
	if err := json.Unmarshal(data, &doc); err == nil && len(doc.Frames) > 0 {
		return doc.Frames, nil
	}
	var frames []*collector.StoredFrame
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// buildTraces flattens the stored frames into per-channel EMA and raw series.
// The x axis is elapsed seconds, accumulated from each frame's sampling rate
// so mixed-rate dumps still line up.
func buildTraces(frames []*collector.StoredFrame, device, targetUnits string) (ema, raw traces, count int) {
	t := 0.0
	for _, stored := range frames {
		if stored == nil || stored.Frame == nil {
			continue
		}
		frame := stored.Frame
		if device != "" && frame.DeviceID != device {
			continue
		}
		if frame.SamplingRate <= 0 {
			continue
		}
		dt := 1.0 / float64(frame.SamplingRate)

		for _, s := range frame.Samples {
			ema[0] = append(ema[0], plotter.XY{X: t, Y: units.ConvertAmplitude(float64(s.Ch0.EMA), targetUnits)})
			ema[1] = append(ema[1], plotter.XY{X: t, Y: units.ConvertAmplitude(float64(s.Ch1.EMA), targetUnits)})
			raw[0] = append(raw[0], plotter.XY{X: t, Y: units.ConvertAmplitude(float64(s.Ch0.Raw), targetUnits)})
			raw[1] = append(raw[1], plotter.XY{X: t, Y: units.ConvertAmplitude(float64(s.Ch1.Raw), targetUnits)})
			t += dt
			count++
		}
	}
	return ema, raw, count
}

// renderPlot draws both channel lines on one plot and saves it as a PNG.
func renderPlot(title, targetUnits string, tr traces, outFile string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = fmt.Sprintf("Amplitude (%s)", targetUnits)

	for ch, pts := range tr {
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = channelColors[ch]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("ch%d", ch), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, outFile); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"coda/audio"
	"coda/cmd"

	"github.com/schollz/progressbar/v3"
)

func main() {
	var (
		input  string
		output string
		start  float64
		clip   float64
		server bool
		port   int
	)

	flag.StringVar(&input, "input", "", "Source audio file (WAV, FLAC or MP3)")
	flag.StringVar(&output, "output", "", "Output WAV path (defaults next to the input)")
	flag.Float64Var(&start, "start", 0, "Clip window start in seconds")
	flag.Float64Var(&clip, "clip", 0, "Clip window length in seconds (0 renders the full source)")
	flag.BoolVar(&server, "server", false, "Start in web server mode")
	flag.IntVar(&port, "port", 8080, "Port for web server mode")
	flag.Parse()

	// Server mode takes precedence
	if server {
		cmd.StartWebServer(port)
		return
	}

	if input == "" {
		flag.Usage()
		return
	}

	data, err := os.ReadFile(input)
	if err != nil {
		log.Fatalf("Cannot read %s: %s", input, err)
	}

	var window *audio.Window
	kind := audio.AssetMaster
	if clip > 0 {
		window = &audio.Window{StartSeconds: start, DurationSeconds: clip}
		kind = audio.AssetClip
	}

	baseName := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
	)

	transcoder := audio.NewTranscoder()
	asset, err := transcoder.Encode(data, window, baseName, kind, func(progress float64) {
		bar.Set(int(progress))
	})
	if err != nil {
		log.Fatalf("Cannot render %s: %s", input, err)
	}
	fmt.Println()

	if output == "" {
		output = filepath.Join(filepath.Dir(input), asset.Filename)
	}
	if err := os.WriteFile(output, asset.Data, 0644); err != nil {
		log.Fatalf("Cannot write %s: %s", output, err)
	}

	log.Printf("Wrote %s (%d bytes, 48 kHz / 24-bit stereo)", output, len(asset.Data))
}

package main

import (
	"flag"
	"log"

	"github.com/pkg/profile"

	"github.com/XEN486/NES/internal/nes"
	"github.com/XEN486/NES/internal/ui"
)

func main() {
	romPath := flag.String("rom", "", "path to an iNES ROM file")
	scale := flag.Int("scale", 2, "window scale factor")
	wavFile := flag.String("wav", "", "capture audio output to a WAV file")
	profileMode := flag.String("profile", "", "enable profiling: cpu or mem")
	flag.Parse()

	if *romPath == "" {
		log.Fatalln("no ROM file given, use -rom")
	}

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		log.Fatalf("unknown profile mode %q\n", *profileMode)
	}

	cart, err := nes.NewCartFromFile(*romPath)
	if err != nil {
		log.Fatalf("couldn't load ROM: %s\n", err.Error())
	}

	console := nes.NewConsole(cart)

	gameUI, err := ui.New(console, ui.Config{
		Scale:   *scale,
		WavFile: *wavFile,
	})
	if err != nil {
		log.Fatalf("couldn't create UI: %s\n", err.Error())
	}
	defer func() {
		if err := gameUI.Close(); err != nil {
			log.Printf("couldn't close UI: %s\n", err.Error())
		}
	}()

	if err := ui.RunUI(gameUI); err != nil {
		log.Fatalf("couldn't run UI: %s\n", err.Error())
	}
}

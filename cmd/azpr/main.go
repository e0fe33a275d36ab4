// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/azpr/config"
	"github.com/ezrec/azpr/emulator"
)

func main() {
	var compile string
	var configFile string
	var input string
	var output string
	var spmIn string
	var spmOut string
	var cycles int
	var stall int
	var verbose bool
	var listing bool

	flag.StringVar(&compile, "c", "", ".s file to assemble and run")
	flag.StringVar(&configFile, "f", "", ".toml or .yaml system configuration")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output")
	flag.StringVar(&spmIn, "s", "", "SPM image to load after reset")
	flag.StringVar(&spmOut, "d", "", "SPM image to save when done")
	flag.IntVar(&cycles, "n", 0, "Cycle limit, 0 for none")
	flag.IntVar(&stall, "stall", 10000, "Bus stall limit, 0 for none")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&listing, "l", false, "Print listing, do not execute")

	flag.Parse()

	log := logrus.StandardLogger()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 {
		log.Fatalf("%v: -c is required", os.Args[0])
	}

	cfg := config.Default()
	if len(configFile) != 0 {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			log.Fatalf("%v: %v", configFile, err)
		}
	}

	emu, err := emulator.NewEmulator(cfg)
	if err != nil {
		log.Fatal(err)
	}
	emu.Verbose = verbose
	emu.Log = log

	inf, err := os.Open(compile)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
	defer inf.Close()

	prog, err := emu.Assemble(inf)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	if listing {
		err = prog.Listing(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if len(spmIn) != 0 {
		spf, err := os.Open(spmIn)
		if err != nil {
			log.Fatalf("%v: %v", spmIn, err)
		}
		err = emu.Spm.Unmarshal(spf)
		spf.Close()
		if err != nil {
			log.Fatalf("%v: %v", spmIn, err)
		}
	}

	if emu.Tape != nil {
		if input == "-" {
			emu.Tape.Input = os.Stdin
		} else {
			tin, err := os.Open(input)
			if err != nil {
				log.Fatalf("%v: %v", input, err)
			}
			defer tin.Close()
			emu.Tape.Input = tin
		}

		if output == "-" {
			emu.Tape.Output = os.Stdout
		} else {
			tout, err := os.Create(output)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			defer tout.Close()
			emu.Tape.Output = tout
		}
	}

	for done, err := emu.Tick(); !done; done, err = emu.Tick() {
		if err != nil {
			log.Fatal(err)
		}
		if cycles > 0 && emu.Ticks >= cycles {
			log.WithField("pc", emu.Pc()).Warnf("cycle limit %d reached", cycles)
			break
		}
		if stall > 0 && emu.Waiting() >= stall {
			log.WithFields(logrus.Fields{
				"pc":   emu.Pc(),
				"line": emu.LineNo(),
			}).Warnf("bus stalled for %d cycles", emu.Waiting())
			break
		}
	}

	log.WithFields(logrus.Fields{
		"ticks":   emu.Ticks,
		"retired": emu.Retired,
		"stalls":  emu.Stalls,
	}).Info("done")

	if len(spmOut) != 0 {
		spf, err := os.Create(spmOut)
		if err != nil {
			log.Fatalf("%v: %v", spmOut, err)
		}
		defer spf.Close()
		err = emu.Spm.Marshal(spf)
		if err != nil {
			log.Fatalf("%v: %v", spmOut, err)
		}
	}
}

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "train":
		runTrain(os.Args[2:])
	case "translate":
		runTranslate(os.Args[2:])
	case "transforms":
		for _, name := range TransformNames() {
			fmt.Println(name)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("multitarget - shared-encoder seq2seq on synthetic string transformations")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  multitarget train --targets reverse,double [options]")
	fmt.Println("  multitarget translate --out DIR --model NAME [options] < input")
	fmt.Println("  multitarget transforms")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train       Train a general model, then one decoder per target")
	fmt.Println("  translate   Translate stdin lines with a saved checkpoint")
	fmt.Println("  transforms  List the available target transformations")
}

func runTrain(args []string) {
	cfg, err := ParseTrainConfig(args)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if _, err := RunMultitarget(cfg, os.Stdout); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runTranslate(args []string) {
	fs := flag.NewFlagSet("translate", flag.ExitOnError)
	out := fs.String("out", "", "Output directory of a train run (required)")
	name := fs.String("model", "general", "Checkpoint to load (general or a target name)")
	beam := fs.Int("beam", 5, "Beam width (1 is greedy)")
	maxLen := fs.Int("max_len", 0, "Maximum output length (default twice the input plus two)")
	fs.Parse(args)

	if *out == "" {
		fmt.Println("Error: --out is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	model, err := loadRun(*out, *name)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	vocab := model.Vocab()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		src := Symbolize(line)
		n := *maxLen
		if n <= 0 {
			n = 2*len(src) + 2
		}
		hyps, err := model.Translate(vocab.Encode(src, true, true), n, *beam)
		if err != nil {
			log.Fatalf("Error: translating %q: %v", line, err)
		}
		if len(hyps) == 0 {
			fmt.Println()
			continue
		}
		fmt.Println(strings.Join(vocab.Decode(hyps[0].IDs), ""))
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error: reading input: %v", err)
	}
}

// loadRun rebuilds the model of a finished run and loads one checkpoint.
func loadRun(dir, name string) (*EncoderDecoder, error) {
	var manifest Manifest
	if err := loadJSON(filepath.Join(dir, "manifest.json"), &manifest); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	vocab, err := LoadVocab(filepath.Join(dir, "vocab.json"))
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	cfg := manifest.Config
	model, err := NewEncoderDecoder([2]int{cfg.Layers, cfg.Layers}, cfg.EmbDim,
		[2]int{cfg.HidDim, cfg.HidDim}, cfg.AttDim, vocab, cfg.ModelConfig())
	if err != nil {
		return nil, err
	}
	path, ok := manifest.Checkpoint[name]
	if !ok {
		path = filepath.Join(dir, "model-"+name+".gob")
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	return model, nil
}

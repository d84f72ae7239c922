package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/config"
	"github.com/vsariola/comper/grid"
	"github.com/vsariola/comper/musicgen"
	"github.com/vsariola/comper/phrase"
	"github.com/vsariola/comper/report"
	"github.com/vsariola/comper/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	outPath := flag.String("o", "", "Directory or filename where to write the .mid file. By default, it is placed next to the song file, or in the output directory of the config.")
	bars := flag.String("bars", "", "Generate only the bars from:to (1-based, inclusive), e.g. 5:12. By default, the whole song is generated.")
	reportFlag := flag.Bool("r", false, "Print a summary of the generated tracks to standard output.")
	configPath := flag.String("c", "", "Read the settings from this .yml file.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	barRange, err := parseBars(*bars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -bars: %v\n", err)
		os.Exit(1)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "comper", Level: cfg.Level()})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = log.WithContext(ctx, logger)
	grid.PreCellWindowDefault = cfg.PreCellWindow
	phrase.MaxFitDegrees = cfg.MaxFitDegrees
	registry := musicgen.NewRegistry()
	registry.Register("dummy", &musicgen.DummyGenerator{CellsPerBeat: cfg.CellsPerBeat})
	process := func(filename string) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		song, err := comper.ReadSong(data)
		if err != nil {
			return err
		}
		gc, err := comper.NewGenerationContext(song, nil, barRange)
		if err != nil {
			return err
		}
		logger.Debug("generating", "song", song.Name, "context", gc)
		b := musicgen.NewSequenceBuilder(gc, registry, musicgen.WithProgress(func(done, total int) {
			logger.Info("rhythm generated", "song", song.Name, "done", done, "total", total)
		}))
		res, err := b.Build(ctx)
		if err != nil {
			return err
		}
		out, err := outputFile(filename, *outPath, cfg.OutputDir)
		if err != nil {
			return err
		}
		if err := res.Sequence.WriteFile(out); err != nil {
			return fmt.Errorf("could not write file %v: %v", out, err)
		}
		logger.Info("wrote", "file", out, "notes", noteCount(res))
		if *reportFlag {
			return report.Summary(os.Stdout, res, gc)
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			logger.Error("could not process file", "file", param, "err", musicgen.UserMessage(err))
			retval = 1
		}
	}
	os.Exit(retval)
}

// parseBars parses from:to, 1-based and inclusive, into a 0-based range.
func parseBars(s string) (comper.IntRange, error) {
	if s == "" {
		return comper.IntRange{}, nil
	}
	fromStr, toStr, ok := strings.Cut(s, ":")
	if !ok {
		return comper.IntRange{}, errors.New("expected from:to")
	}
	from, err := strconv.Atoi(fromStr)
	if err != nil {
		return comper.IntRange{}, err
	}
	to, err := strconv.Atoi(toStr)
	if err != nil {
		return comper.IntRange{}, err
	}
	if from < 1 || to < from {
		return comper.IntRange{}, fmt.Errorf("bars %d:%d out of order", from, to)
	}
	return comper.NewIntRange(from-1, to-1), nil
}

// outputFile returns the .mid path for a song file. flagPath wins over dir;
// an existing directory in either is used with the song file name.
func outputFile(songFile, flagPath, dir string) (string, error) {
	_, name := filepath.Split(songFile)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if flagPath == "" {
		flagPath = dir
		if dir != "" {
			flagPath += string(filepath.Separator)
		}
	}
	outDir := filepath.Dir(songFile)
	if flagPath != "" {
		if info, err := os.Stat(flagPath); err == nil && info.IsDir() {
			outDir = flagPath
		} else {
			d, n := filepath.Split(flagPath)
			outDir = d
			if n != "" {
				name = strings.TrimSuffix(n, filepath.Ext(n))
			}
		}
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
			return "", fmt.Errorf("could not create output directory %v: %v", outDir, err)
		}
	}
	return filepath.Join(outDir, name+".mid"), nil
}

func noteCount(res *musicgen.Result) int {
	n := 0
	for _, t := range res.Sequence.Tracks {
		n += t.NoteCount()
	}
	return n
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Comper generator. Input .yml or .json songs, outputs the accompaniment as .mid files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}

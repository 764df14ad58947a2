package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/smpte/internal/batch"
	"github.com/zsiec/smpte/pkg/timecode"
	"github.com/zsiec/smpte/pkg/version"
)

const defaultRate = "29.97df"

// errUsage reports a command line mistake already explained on stderr.
var errUsage = errors.New("usage")

// rateFlags parses the shared -rate flag and checks the positional count.
func rateFlags(name string, args []string, nargs int, argsHelp string, stderr io.Writer) (timecode.Rate, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	rateText := fs.String("rate", defaultRate, "frame rate")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: smpte %s [-rate R] %s\n", name, argsHelp)
		fs.PrintDefaults()
	}

	pos, err := parseArgs(fs, args)
	if err != nil {
		return timecode.Rate{}, nil, errUsage
	}
	if len(pos) != nargs {
		fs.Usage()
		return timecode.Rate{}, nil, errUsage
	}

	rate, err := timecode.ParseRate(*rateText)
	if err != nil {
		return timecode.Rate{}, nil, err
	}
	return rate, pos, nil
}

// parseArgs parses flags anywhere on the command line and returns the
// positional arguments in order. A negative integer is a positional frame
// count, not a flag; everything after "--" is positional.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for len(args) > 0 {
		if isNegativeInt(args[0]) {
			pos = append(pos, args[0])
			args = args[1:]
			continue
		}

		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(pos, rest...), nil
		}
		if len(rest) == 0 {
			break
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
	return pos, nil
}

func isNegativeInt(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func parseFrames(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("frames must be an integer: %q", s)
	}
	return n, nil
}

func runParse(args []string, stdout, stderr io.Writer) error {
	rate, rest, err := rateFlags("parse", args, 1, "TIMECODE", stderr)
	if err != nil {
		return err
	}
	frames, err := rate.Parse(rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, frames)
	return nil
}

func runFormat(args []string, stdout, stderr io.Writer) error {
	rate, rest, err := rateFlags("format", args, 1, "FRAMES", stderr)
	if err != nil {
		return err
	}
	frames, err := parseFrames(rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, rate.Format(frames))
	return nil
}

func runAdd(args []string, stdout, stderr io.Writer) error {
	rate, rest, err := rateFlags("add", args, 2, "TIMECODE FRAMES", stderr)
	if err != nil {
		return err
	}
	delta, err := parseFrames(rest[1])
	if err != nil {
		return err
	}
	text, err := rate.Add(rest[0], delta)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, text)
	return nil
}

func runDiff(args []string, stdout, stderr io.Writer) error {
	rate, rest, err := rateFlags("diff", args, 2, "A B", stderr)
	if err != nil {
		return err
	}
	frames, err := rate.Difference(rest[0], rest[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, frames)
	return nil
}

// runValidate prints the verdict and returns the exit code directly.
func runValidate(args []string, stdout, stderr io.Writer) int {
	rate, rest, err := rateFlags("validate", args, 1, "TIMECODE", stderr)
	if errors.Is(err, errUsage) {
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "smpte: %v\n", err)
		return 1
	}

	if _, err := rate.Parse(rest[0]); err != nil {
		fmt.Fprintf(stdout, "invalid: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "valid")
	return 0
}

func runBatch(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rateText := fs.String("rate", defaultRate, "frame rate used when the job names none")
	format := fs.String("format", "", "job format: json or yaml (default from file extension)")
	output := fs.String("output", "json", "result format: json or yaml")
	concurrency := fs.Int("concurrency", 8, "operations evaluated at once")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: smpte batch [-rate R] [-format F] [-output F] FILE")
		fs.PrintDefaults()
	}

	pos, err := parseArgs(fs, args)
	if err != nil {
		return errUsage
	}
	if len(pos) != 1 {
		fs.Usage()
		return errUsage
	}

	path := pos[0]
	var in io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	jobFormat := batch.Format(*format)
	if jobFormat == "" {
		jobFormat = batch.FormatFromPath(path)
	}

	job, err := batch.Decode(in, jobFormat)
	if err != nil {
		return err
	}

	runner := &batch.Runner{DefaultRate: *rateText, Concurrency: *concurrency}
	result, err := runner.Run(context.Background(), job)
	if err != nil {
		return err
	}

	switch *output {
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	}

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(result.Results))
	}
	return nil
}

func runVersion(args []string, stdout io.Writer) error {
	fmt.Fprintln(stdout, version.GetInfo().String())
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `usage: smpte <command> [flags] [args]

commands:
  serve     -config FILE              run the HTTP API
  parse     [-rate R] TIMECODE        print the frame count of a timecode
  format    [-rate R] FRAMES          print the timecode of a frame count
  add       [-rate R] TIMECODE FRAMES offset a timecode by frames
  diff      [-rate R] A B             print the frames from A to B
  validate  [-rate R] TIMECODE        exit 1 when the timecode is invalid
  batch     [-rate R] FILE            evaluate a YAML or JSON job ("-" reads stdin)
  version                             print version information

R is a rate such as 24, 25, 29.97df, 30000/1001 DF or 59.94-ndf.
Flags may come before or after the arguments, and negative frame counts
are read as numbers (smpte format -rate 24 -100). Arguments after "--" are
never flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "serve":
		err = runServe(rest, stderr)
	case "parse":
		err = runParse(rest, stdout, stderr)
	case "format":
		err = runFormat(rest, stdout, stderr)
	case "add":
		err = runAdd(rest, stdout, stderr)
	case "diff", "difference":
		err = runDiff(rest, stdout, stderr)
	case "validate":
		return runValidate(rest, stdout, stderr)
	case "batch":
		err = runBatch(rest, stdin, stdout, stderr)
	case "version", "-version", "--version":
		err = runVersion(rest, stdout)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "smpte: unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintf(stderr, "smpte: %v\n", err)
		return 1
	}
	return 0
}

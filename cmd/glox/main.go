package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gloxlang/glox/pkg/gc"
	"github.com/gloxlang/glox/pkg/vm"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("glox version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("Error: no file specified")
			printUsage()
			os.Exit(1)
		}
		runFile(os.Args[2])
	default:
		runFile(os.Args[1])
	}
}

func printUsage() {
	fmt.Println("glox - a Lox-family scripting language")
	fmt.Println("\nUsage:")
	fmt.Println("  glox                  Start interactive REPL")
	fmt.Println("  glox [file]           Run a .lox source file")
	fmt.Println("  glox run [file]       Run a .lox source file")
	fmt.Println("  glox repl             Start interactive REPL")
	fmt.Println("  glox version          Show version")
	fmt.Println("  glox help             Show this help")
}

func newLog() zerolog.Logger {
	level := zerolog.WarnLevel
	if os.Getenv("GLOX_VERBOSE") != "" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func runFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		color.Red("Error reading file: %v", err)
		os.Exit(1)
	}

	g := gc.New(newLog())
	v := vm.New(g, vm.Options{Log: g.Log})

	if err := v.Interpret(string(data)); err != nil {
		color.Red("%v", err)
		os.Exit(70) // EX_SOFTWARE, matching the reference interpreter's exit code for runtime errors
	}
}

// runREPL starts an interactive Read-Eval-Print Loop backed by
// peterh/liner for history and line editing, the way an interpreter's
// REPL front end typically is in the Go ecosystem. The VM and its
// garbage collector persist for the whole session, so globals and
// interned strings survive across inputs.
func runREPL() {
	fmt.Printf("glox %s\n", version)

	g := gc.New(newLog())
	v := vm.New(g, vm.Options{Log: g.Log})

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("glox> ")
		if err != nil { // io.EOF on Ctrl-D, liner.ErrPromptAborted on Ctrl-C
			fmt.Println()
			return
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if err := v.Interpret(input); err != nil {
			color.Red("%v", err)
		}
	}
}

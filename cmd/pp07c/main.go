package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/xplshn/pp07/pkg/ast"
	"github.com/xplshn/pp07/pkg/cli"
	"github.com/xplshn/pp07/pkg/codegen"
	"github.com/xplshn/pp07/pkg/compiler"
	"github.com/xplshn/pp07/pkg/config"
	"github.com/xplshn/pp07/pkg/token"
	"github.com/xplshn/pp07/pkg/util"
)

func main() {
	app := cli.NewApp("pp07c")
	app.Synopsis = "[options] <input.pp07> ..."
	app.Description = "A checker and compiler for the PP07 language, targeting the Sprockell machine or native code through QBE."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/pp07>"
	app.Since = 2025

	var (
		outFile    string
		std        string
		target     string
		dumpIR     bool
		dumpAST    bool
		checkOnly  bool
		sprockells int
		debugger   bool
		verbose    bool
		wall       bool
		wnoAll     bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", config.BackendSprockell, "Set the backend and target ABI.", "backend/target")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the intermediate representation and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the parsed program as an S-expression and exit.")
	fs.Bool(&checkOnly, "check", "", false, "Only check the program, do not generate code.")
	fs.Int(&sprockells, "sprockells", "", 1, "Number of sprockells running the program.", "n")
	fs.Bool(&debugger, "debug", "", false, "Run the Sprockell program under the debugger.")
	fs.Bool(&verbose, "verbose", "v", false, "Print the compilation stages.")
	fs.String(&std, "std", "", "PP07", "Specify language standard (PP07, core)", "std")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoAll, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.Verbose = verbose
		if err := cfg.ApplyStd(std); err != nil {
			util.Error(token.Token{}, "%s", err.Error())
		}
		if wall {
			cfg.SetAllWarnings(true)
		}
		if wnoAll {
			cfg.SetAllWarnings(false)
		}
		// explicit flags override the standard
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Error(token.Token{}, "%s", err.Error())
		}
		cfg.Sprockells, cfg.Debugger = sprockells, debugger

		if len(inputFiles) == 0 {
			util.Error(token.Token{}, "no input files specified.")
		}

		stage(cfg, "Reading %d source file(s)...", len(inputFiles))
		records := readFiles(inputFiles)
		util.SetSourceFiles(records)

		if dumpAST {
			tree, err := compiler.Parse(records, cfg)
			if err != nil {
				reportAndExit(err)
			}
			fmt.Println(ast.Sexpr(tree.Root))
			return nil
		}

		stage(cfg, "Checking...")
		unit, warnings, err := compiler.Check(records, cfg)
		util.EmitWarnings(cfg, warnings)
		if err != nil {
			reportAndExit(err)
		}
		if checkOnly {
			return nil
		}

		backend, err := codegen.NewBackend(cfg.BackendName)
		if err != nil {
			util.Error(token.Token{}, "%s", err.Error())
		}

		if dumpIR {
			stage(cfg, "Dumping IR for '%s' backend...", cfg.BackendName)
			irText, err := backend.GenerateIR(unit, cfg)
			if err != nil {
				util.Error(token.Token{}, "backend IR generation failed: %v", err)
			}
			fmt.Print(irText)
			return nil
		}

		stage(cfg, "Generating code with '%s' backend...", cfg.BackendName)
		out, err := backend.Generate(unit, cfg)
		if err != nil {
			util.Error(token.Token{}, "backend code generation failed: %v", err)
		}

		if cfg.BackendName == config.BackendSprockell {
			if outFile == "" {
				outFile = "a.hs"
			}
			if err := os.WriteFile(outFile, out.Bytes(), 0o644); err != nil {
				util.Error(token.Token{}, "could not write '%s': %v", outFile, err)
			}
			return nil
		}

		if outFile == "" {
			outFile = "a.out"
		}
		if strings.HasSuffix(outFile, ".s") {
			if err := os.WriteFile(outFile, out.Bytes(), 0o644); err != nil {
				util.Error(token.Token{}, "could not write '%s': %v", outFile, err)
			}
			return nil
		}
		stage(cfg, "Linking to create '%s'...", outFile)
		if err := assembleAndLink(outFile, out.String()); err != nil {
			util.Error(token.Token{}, "assembler/linker failed: %v", err)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func stage(cfg *config.Config, format string, args ...interface{}) {
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func reportAndExit(err error) {
	var diag *util.Diagnostic
	var cerr *util.CompileError
	switch {
	case errors.As(err, &cerr):
		util.Report(os.Stderr, cerr.Diags)
		fmt.Fprintf(os.Stderr, "%d error(s) generated.\n", len(cerr.Diags))
	case errors.As(err, &diag):
		util.Report(os.Stderr, []*util.Diagnostic{diag})
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func readFiles(paths []string) []util.SourceFileRecord {
	records := make([]util.SourceFileRecord, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
		}
		records = append(records, util.SourceFileRecord{Name: path, Content: []rune(string(content))})
	}
	return records
}

func assembleAndLink(outFile, mainAsm string) error {
	mainAsmFile, err := os.CreateTemp("", "pp07c-main-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for main asm: %w", err)
	}
	defer os.Remove(mainAsmFile.Name())
	if _, err := mainAsmFile.WriteString(mainAsm); err != nil {
		return fmt.Errorf("failed to write to temp file for main asm: %w", err)
	}
	mainAsmFile.Close()

	cmd := exec.Command("cc", "-no-pie", "-o", outFile, mainAsmFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}

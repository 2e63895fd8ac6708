// gtest runs pp07c over a directory of programs and compares what it prints
// against golden files or against a reference build of the compiler.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Invocation is one run of the compiler with a fixed argument set
type Invocation struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

type CompilerResult struct {
	Invocations []Invocation `json:"invocations"`
}

type FileTestResult struct {
	File      string          `json:"file"`
	Hash      string          `json:"hash,omitempty"`
	Status    string          `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message   string          `json:"message,omitempty"`
	Diff      string          `json:"diff,omitempty"`
	Reference *CompilerResult `json:"reference,omitempty"`
	Target    *CompilerResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	refCompiler    = flag.String("ref-compiler", "", "Path to a reference build of pp07c.")
	targetCompiler = flag.String("target-compiler", "./pp07c", "Path to the compiler to test.")
	extraArgs      = flag.String("args", "", "Extra arguments passed to every invocation (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate golden .json files for the given source files (space-separated).")
	testFiles      = flag.String("test-files", "tests/*.pp07", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

// invocations are the argument sets every program is pushed through
var invocations = []struct {
	name string
	args []string
}{
	{"check", []string{"--check", "-Wall"}},
	{"sprockell-ir", []string{"-d", "-t", "sprockell"}},
	{"qbe-ir", []string{"-d", "-t", "qbe"}},
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	setupInterruptHandler()

	if *generateGolden != "" {
		for _, f := range strings.Fields(*generateGolden) {
			handleGenerateGolden(f)
		}
		return
	}

	if handleRunTestSuite() {
		os.Exit(1)
	}
}

// setupInterruptHandler reports a cancelled run on CTRL+C
func setupInterruptHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(sourceFile string) {
	log.Printf("Generating golden file for %s...\n", sourceFile)

	result := runCompiler(*targetCompiler, sourceFile)
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}

	goldenFileName := getJSONPath(sourceFile)
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	if err := os.WriteFile(goldenFileName, jsonData, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, goldenFileName, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFileName)
}

// handleRunTestSuite reports whether any file failed
func handleRunTestSuite() bool {
	if _, err := exec.LookPath(*targetCompiler); err != nil {
		log.Fatalf("%s[ERROR]%s Target compiler '%s' not found.\n", cRed, cNone, *targetCompiler)
	}
	refFound := false
	if *refCompiler != "" {
		_, err := exec.LookPath(*refCompiler)
		refFound = err == nil
		if !refFound {
			log.Printf("%s[WARN]%s Reference compiler '%s' not found. Will rely on golden files.\n", cYellow, cNone, *refCompiler)
		}
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return false
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, refFound)
			}
		}()
	}

	// identical sources are tested once
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Hash: fileHash, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	return hasFailures(writeJSONReport(allResults))
}

func testFile(file string, refFound bool) *FileTestResult {
	hash, _ := hashFile(file)
	target := runCompiler(*targetCompiler, file)

	if refFound {
		ref := runCompiler(*refCompiler, file)
		res := compareResults(file, ref, target)
		res.Hash = hash
		res.Message += " (against reference compiler)"
		return res
	}

	goldenFile := getJSONPath(file)
	goldenData, err := os.ReadFile(goldenFile)
	if os.IsNotExist(err) {
		return &FileTestResult{File: file, Hash: hash, Status: "SKIP", Message: "No reference compiler and no .json golden file", Target: target}
	}
	if err != nil {
		return &FileTestResult{File: file, Hash: hash, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden CompilerResult
	if err := json.Unmarshal(goldenData, &golden); err != nil {
		return &FileTestResult{File: file, Hash: hash, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	res := compareResults(file, &golden, target)
	res.Hash = hash
	return res
}

func runCompiler(compiler, sourceFile string) *CompilerResult {
	result := &CompilerResult{Invocations: make([]Invocation, 0, len(invocations))}
	for _, inv := range invocations {
		args := append([]string{}, inv.args...)
		args = append(args, strings.Fields(*extraArgs)...)
		args = append(args, sourceFile)

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		exe := executeCommand(ctx, compiler, args...)
		cancel()
		// diagnostics carry the path the compiler was given
		exe.Stderr = strings.ReplaceAll(exe.Stderr, sourceFile, filepath.Base(sourceFile))

		if *verbose {
			log.Printf("[%s] %s exited %d in %s", filepath.Base(sourceFile), inv.name, exe.ExitCode, exe.Duration)
		}
		result.Invocations = append(result.Invocations, Invocation{Name: inv.name, Args: inv.args, Result: exe})
		if exe.TimedOut {
			break
		}
	}
	return result
}

func compareResults(file string, ref, target *CompilerResult) *FileTestResult {
	var diffs strings.Builder
	var failed bool

	targetRuns := make(map[string]Invocation, len(target.Invocations))
	for _, inv := range target.Invocations {
		targetRuns[inv.Name] = inv
	}

	for _, refInv := range ref.Invocations {
		targetInv, ok := targetRuns[refInv.Name]
		if !ok {
			failed = true
			diffs.WriteString(fmt.Sprintf("Invocation '%s' missing in target results.\n", refInv.Name))
			continue
		}
		if targetInv.Result.TimedOut {
			failed = true
			diffs.WriteString(fmt.Sprintf("Invocation '%s' timed out.\n", refInv.Name))
			continue
		}
		if refInv.Result.ExitCode != targetInv.Result.ExitCode {
			failed = true
			diffs.WriteString(fmt.Sprintf("Invocation '%s' Exit Code mismatch:\n  - Ref:    %d\n  - Target: %d\n", refInv.Name, refInv.Result.ExitCode, targetInv.Result.ExitCode))
		}
		if d := cmp.Diff(refInv.Result.Stdout, targetInv.Result.Stdout); d != "" {
			failed = true
			diffs.WriteString(fmt.Sprintf("Invocation '%s' STDOUT mismatch:\n%s", refInv.Name, d))
		}
		if d := cmp.Diff(refInv.Result.Stderr, targetInv.Result.Stderr); d != "" {
			failed = true
			diffs.WriteString(fmt.Sprintf("Invocation '%s' STDERR mismatch:\n%s", refInv.Name, d))
		}
	}

	if failed {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler output or exit code mismatch", Diff: diffs.String(), Reference: ref, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All invocations matched", Reference: ref, Target: target}
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	execResult := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		execResult.TimedOut = true
		execResult.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			execResult.ExitCode = exitErr.ExitCode()
		} else {
			execResult.ExitCode = -2
			execResult.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return execResult
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}

		if result.Target == nil {
			continue
		}
		for _, inv := range result.Target.Invocations {
			total += inv.Result.Duration
			if *verbose {
				fmt.Printf("  %-14s exit %d  %s\n", inv.Name, inv.Result.ExitCode, formatDuration(inv.Result.Duration))
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if n := passed + failed; n > 0 {
		fmt.Printf("Average time per file: %s\n", formatDuration(total/time.Duration(n)))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}

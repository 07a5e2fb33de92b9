package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	cmd := exec.Command(os.Args[1], args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	// bin/diff prints its result before exiting 1 on a threshold breach, so
	// outputs are exported before the exit code is propagated.
	exitCode := 0
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(1)
		}
		exitCode = exitErr.ExitCode()
	}
	_, _ = os.Stdout.Write(output)

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			os.Exit(1)
		}
		if err := writeOutputs(f, output); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		_ = f.Close()
	}

	os.Exit(exitCode)
}

// writeOutputs writes one key=value line per top-level key of a JSON object,
// sorted by key. Nested values are written as compact JSON.
func writeOutputs(w io.Writer, output []byte) error {
	var result map[string]json.RawMessage
	if err := json.Unmarshal(output, &result); err != nil {
		return fmt.Errorf("failed to parse output: %w", err)
	}

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var value any
		if err := json.Unmarshal(result[key], &value); err != nil {
			return fmt.Errorf("failed to parse %s: %w", key, err)
		}
		switch v := value.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			value = string(b)
		case nil:
			value = ""
		}
		if _, err := fmt.Fprintf(w, "%s=%v\n", key, value); err != nil {
			return err
		}
	}
	return nil
}

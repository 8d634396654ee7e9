package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONMode controls whether commands print JSON or human-readable text.
var JSONMode bool

// Stdout is where Print and PrintError write.
var Stdout io.Writer = os.Stdout

// Result is the JSON envelope for every command.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Print outputs data. In JSON mode it marshals data inside a Result,
// otherwise it calls textFn.
func Print(data any, textFn func()) error {
	if !JSONMode {
		textFn()
		return nil
	}
	return writeJSON(Result{Success: true, Data: data})
}

// PrintError reports err as a JSON Result. It returns false when JSON mode
// is off, leaving the caller to print the error as text.
func PrintError(err error) bool {
	if !JSONMode {
		return false
	}
	if werr := writeJSON(Result{Success: false, Error: err.Error()}); werr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return true
}

func writeJSON(r Result) error {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(Stdout, string(out))
	return err
}

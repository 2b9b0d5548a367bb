package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace file names.
const (
	AccountsFile          = "accounts.json"
	ContractsSummaryFile  = "contracts_summary.json"
	DecodedAccountsFile   = "accounts_with_decoded_attributes.json"
	UnwrappedAccountsFile = "accounts_with_unwrapped_tokens.json"
	CheckpointsFile       = "checkpoints.json"
	RankingFile           = "ranking.json"
	RankingTextFile       = "ranking.txt"
)

// Workspace is the directory holding the inputs and outputs of a snapshot.
type Workspace struct {
	Dir string
}

// Path returns the location of a workspace file.
func (w Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

func (w Workspace) readJSON(name string, v any) error {
	path := w.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (w Workspace) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return w.writeFile(w.Path(name), append(data, '\n'))
}

func (w Workspace) writeLines(path string, lines []string) error {
	return w.writeFile(path, []byte(strings.Join(lines, "\n")+"\n"))
}

func (w Workspace) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Package notebook provides session-scoped note keeping tools. Notes live in
// memory for the lifetime of one session, giving an agent a scratchpad for
// intermediate findings that later turns can read back instead of re-deriving
// them from the conversation.
package notebook

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/reedham/tether/pkg/tools/toolbox"
)

// validName matches names that contain only alphanumeric characters, hyphens,
// and underscores.
var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Notebook is a thread-safe in-memory collection of named notes. Tool calls
// within one acting phase may run concurrently, so every access takes the lock.
type Notebook struct {
	mu    sync.RWMutex
	notes map[string]string
}

// New creates an empty Notebook.
func New() *Notebook {
	return &Notebook{notes: make(map[string]string)}
}

// Tools returns a ToolBox with write_note, read_note, and list_notes tools.
func (n *Notebook) Tools() *toolbox.ToolBox {
	tb := toolbox.New()

	tb.Register(
		toolbox.Tool{
			Name:        "write_note",
			Description: "Create or overwrite a named note for this session. Use notes to park intermediate findings so later turns can pick them back up. Use descriptive names like 'candidate-sources' or 'open_questions'.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string","description":"Note name (alphanumeric, hyphens, underscores only)"},"content":{"type":"string","description":"Markdown content of the note"}},"required":["name","content"]}`),
			Handler:     n.handleWrite,
		},
		toolbox.Tool{
			Name:        "read_note",
			Description: "Read the content of a previously saved note by name.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string","description":"Name of the note to read"}},"required":["name"]}`),
			Handler:     n.handleRead,
		},
		toolbox.Tool{
			Name:        "list_notes",
			Description: "List all notes in this session with a first-line preview of each.",
			InputSchema: json.RawMessage(`{"type":"object"}`),
			Handler:     n.handleList,
		},
	)

	return tb
}

// --- input types ---

type writeInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type readInput struct {
	Name string `json:"name"`
}

// --- handlers ---

func (n *Notebook) handleWrite(_ context.Context, input json.RawMessage) (string, error) {
	var in writeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("write_note: invalid input: %w", err)
	}

	if in.Name == "" {
		return "", fmt.Errorf("write_note: name is required")
	}

	if !validName.MatchString(in.Name) {
		return "", fmt.Errorf("write_note: invalid name %q: only alphanumeric characters, hyphens, and underscores are allowed", in.Name)
	}

	n.mu.Lock()
	n.notes[in.Name] = in.Content
	n.mu.Unlock()

	return fmt.Sprintf("Note %q saved.", in.Name), nil
}

func (n *Notebook) handleRead(_ context.Context, input json.RawMessage) (string, error) {
	var in readInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("read_note: invalid input: %w", err)
	}

	if in.Name == "" {
		return "", fmt.Errorf("read_note: name is required")
	}

	if !validName.MatchString(in.Name) {
		return "", fmt.Errorf("read_note: invalid name %q: only alphanumeric characters, hyphens, and underscores are allowed", in.Name)
	}

	n.mu.RLock()
	text, ok := n.notes[in.Name]
	n.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("read_note: note %q not found", in.Name)
	}

	return text, nil
}

func (n *Notebook) handleList(_ context.Context, _ json.RawMessage) (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.notes))
	for name := range n.notes {
		names = append(names, name)
	}

	if len(names) == 0 {
		return "No notes found.", nil
	}

	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s: %s", name, firstLine(n.notes[name])))
	}

	return strings.Join(lines, "\n"), nil
}

// firstLine returns the first non-empty line of a note for preview purposes.
func firstLine(text string) string {
	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			if len(trimmed) > 80 {
				return trimmed[:80] + "..."
			}

			return trimmed
		}
	}

	return "(empty)"
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/storytime-app/storytime/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.json> [...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		v := &GraphValidator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range v.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type GraphValidator struct {
	warnings []string
}

func (v *GraphValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("story file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !story.ValidKey(nameWithoutExt) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., my_story.json, not my-story.json or MyStory.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var g story.Graph
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&g); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := g.Validate(); err != nil {
		return err
	}

	v.checkShape(&g)
	return nil
}

// checkShape flags authoring smells that are legal but usually
// unintended: branch scenes with a single choice, scenes offering more
// than three options, and scenarios no choice can reach.
func (v *GraphValidator) checkShape(g *story.Graph) {
	reachable := map[string]bool{g.Start: true}
	for _, s := range g.Scenarios {
		for _, c := range s.Choices {
			if !c.Terminal() {
				reachable[c.Next] = true
			}
		}
	}

	for _, key := range g.Keys() {
		s, _ := g.Get(key)
		if n := len(s.Choices); n == 1 {
			v.warn(fmt.Sprintf("scenario %q has a single choice", key))
		} else if n > 3 {
			v.warn(fmt.Sprintf("scenario %q has %d choices; readers handle 2-3 best", key, n))
		}
		if !reachable[key] {
			v.warn(fmt.Sprintf("scenario %q is unreachable from %q", key, g.Start))
		}
	}
}

func (v *GraphValidator) warn(msg string) {
	v.warnings = append(v.warnings, msg)
}

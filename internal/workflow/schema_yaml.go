package workflow

import (
	"fmt"
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// transitionTableYAML is the on-disk shape of a transition table, e.g.
// config/transitions.yaml. It mirrors StateTransition field-for-field so
// the YAML document reads the same as the Go literal in
// DefaultLabelSchema.
type transitionTableYAML struct {
	Transitions []struct {
		From       WorkflowState `yaml:"from"`
		To         WorkflowState `yaml:"to"`
		Trigger    string        `yaml:"trigger"`
		Conditions []string      `yaml:"conditions"`
		Actions    []string      `yaml:"actions"`
	} `yaml:"transitions"`
}

// LoadLabelSchemaFile parses a transition table YAML document into a
// LabelSchema.
func LoadLabelSchemaFile(path string) (LabelSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LabelSchema{}, fmt.Errorf("reading transition table %s: %w", path, err)
	}

	var doc transitionTableYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return LabelSchema{}, fmt.Errorf("parsing transition table %s: %w", path, err)
	}

	schema := LabelSchema{Transitions: make([]StateTransition, 0, len(doc.Transitions))}
	for _, t := range doc.Transitions {
		schema.Transitions = append(schema.Transitions, StateTransition{
			From:       t.From,
			To:         t.To,
			Trigger:    t.Trigger,
			Conditions: t.Conditions,
			Actions:    t.Actions,
		})
	}
	return schema, nil
}

// SchemaWatcher reloads an orchestrator's transition table from path
// whenever the file changes on disk, so operators can re-shape the
// workflow without restarting the controller.
type SchemaWatcher struct {
	path         string
	orchestrator *LabelOrchestrator
	watcher      *fsnotify.Watcher
	logger       *log.Logger
}

// NewSchemaWatcher loads path once into orchestrator and prepares to watch
// it for further changes. Call Start to begin watching.
func NewSchemaWatcher(path string, orchestrator *LabelOrchestrator, logger *log.Logger) (*SchemaWatcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	schema, err := LoadLabelSchemaFile(path)
	if err != nil {
		return nil, err
	}
	orchestrator.SetSchema(schema)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating transition table watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching transition table %s: %w", path, err)
	}

	return &SchemaWatcher{path: path, orchestrator: orchestrator, watcher: watcher, logger: logger}, nil
}

// Run processes filesystem events until ctx's done channel, or rather
// until Close is called; it blocks, so callers run it in its own
// goroutine.
func (w *SchemaWatcher) Run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			schema, err := LoadLabelSchemaFile(w.path)
			if err != nil {
				w.logger.Printf("workflow: reloading transition table %s failed, keeping previous table: %v", w.path, err)
				continue
			}
			w.orchestrator.SetSchema(schema)
			w.logger.Printf("workflow: reloaded transition table %s (%d transitions)", w.path, len(schema.Transitions))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("workflow: transition table watcher error: %v", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *SchemaWatcher) Close() error {
	return w.watcher.Close()
}

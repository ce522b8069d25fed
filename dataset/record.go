// Package dataset loads benchmark prompts from user-supplied CSV and XLSX
// files, inferring which columns hold the prompt and the reference answer.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxPerDataset caps how many prompts a single dataset contributes.
const DefaultMaxPerDataset = 20

// Ref points at one dataset file.
type Ref struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	// PromptColumn and ReferenceColumn override keyword inference when they
	// name an existing header.
	PromptColumn    string `json:"prompt_column,omitempty" yaml:"prompt_column,omitempty"`
	ReferenceColumn string `json:"reference_column,omitempty" yaml:"reference_column,omitempty"`
}

// PromptRecord is one prompt taken from a dataset row.
type PromptRecord struct {
	ID              string `json:"id"`
	Prompt          string `json:"prompt"`
	Category        string `json:"category"`
	SourceDataset   string `json:"sourceDataset"`
	SourceFile      string `json:"sourceFile"`
	ReferenceAnswer string `json:"referenceAnswer,omitempty"`
}

// HasReference reports whether the record carries a non-blank reference.
func (r PromptRecord) HasReference() bool {
	return strings.TrimSpace(r.ReferenceAnswer) != ""
}

var (
	// ErrNoPromptsFound is returned when no dataset yielded a usable prompt.
	ErrNoPromptsFound = errors.New("dataset: no prompts found")

	// ErrNoReferencePrompts is returned when prompts were loaded but none
	// of them carries a reference answer.
	ErrNoReferencePrompts = errors.New("dataset: no prompts with reference answers")
)

// NoPromptsError carries load diagnostics for ErrNoPromptsFound.
type NoPromptsError struct {
	Datasets int // datasets consulted
	RowsRead int // data rows read across all datasets
}

func (e *NoPromptsError) Error() string {
	return fmt.Sprintf("no prompts found in the selected datasets (%d datasets, %d rows read); check that each file has a prompt/question column",
		e.Datasets, e.RowsRead)
}

func (e *NoPromptsError) Is(target error) bool { return target == ErrNoPromptsFound }

// NoReferenceError carries diagnostics for ErrNoReferencePrompts.
type NoReferenceError struct {
	Loaded int // prompts loaded before filtering
}

func (e *NoReferenceError) Error() string {
	return fmt.Sprintf("no prompts with reference answers: %d prompts loaded, 0 carry a reference; add a reference/answer column", e.Loaded)
}

func (e *NoReferenceError) Is(target error) bool { return target == ErrNoReferencePrompts }

// WithReferences keeps only records that carry a reference answer.
func WithReferences(records []PromptRecord) []PromptRecord {
	out := make([]PromptRecord, 0, len(records))
	for _, r := range records {
		if r.HasReference() {
			out = append(out, r)
		}
	}
	return out
}

// RequireReferences filters records to those with a reference answer and
// fails when none qualify.
func RequireReferences(records []PromptRecord) ([]PromptRecord, error) {
	out := WithReferences(records)
	if len(out) == 0 {
		return nil, &NoReferenceError{Loaded: len(records)}
	}
	return out, nil
}

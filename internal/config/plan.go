package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Operation kinds a Plan may contain (spec §9 "plan file" supplement).
const (
	OpReplaceRange   = "replace_range"
	OpAcceptAll      = "accept_all"
	OpRejectAll      = "reject_all"
	OpAddComment     = "add_comment"
	OpAddReply       = "add_reply"
	OpDeleteComment  = "delete_comment"
	OpAddFootnote    = "add_footnote"
	OpUpdateFootnote = "update_footnote"
	OpDeleteFootnote = "delete_footnote"
	OpDocumentView   = "document_view"
)

var knownOperationKinds = map[string]bool{
	OpReplaceRange:   true,
	OpAcceptAll:      true,
	OpRejectAll:      true,
	OpAddComment:     true,
	OpAddReply:       true,
	OpDeleteComment:  true,
	OpAddFootnote:    true,
	OpUpdateFootnote: true,
	OpDeleteFootnote: true,
	OpDocumentView:   true,
}

// Operation is one step of a docxctl edit plan.
type Operation struct {
	Kind               string `yaml:"kind"`
	ParagraphIndex     int    `yaml:"paragraph_index,omitempty"`
	Start              int    `yaml:"start,omitempty"`
	End                int    `yaml:"end,omitempty"`
	Text               string `yaml:"text,omitempty"`
	Author             string `yaml:"author,omitempty"`
	Initials           string `yaml:"initials,omitempty"`
	AnchorText         string `yaml:"anchor_text,omitempty"`
	ParentParaID       string `yaml:"parent_para_id,omitempty"`
	ParaID             string `yaml:"para_id,omitempty"`
	FootnoteID         int    `yaml:"footnote_id,omitempty"`
	Output             string `yaml:"output,omitempty"`
	EmitFormattingTags bool   `yaml:"emit_formatting_tags,omitempty"`
}

// Plan is the ordered list of operations docxctl executes against one opened
// document (spec §9 "plan file" supplement).
type Plan struct {
	Input      string      `yaml:"input"`
	CleanOut   string      `yaml:"clean_output"`
	RedlineOut string      `yaml:"redline_output"`
	Operations []Operation `yaml:"operations"`
}

// LoadPlan reads and validates a YAML plan file, following the same
// read-file/unmarshal/validate pipeline as bisibesi-pocket-doc's
// LoadConfig.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}

	if plan.CleanOut == "" {
		plan.CleanOut = "clean.docx"
	}
	if plan.RedlineOut == "" {
		plan.RedlineOut = "redline.docx"
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &plan, nil
}

// Validate checks every operation names a known kind and carries the fields
// that kind requires.
func (p *Plan) Validate() error {
	if p.Input == "" {
		return fmt.Errorf("config: plan is missing required field \"input\"")
	}
	for i, op := range p.Operations {
		if !knownOperationKinds[op.Kind] {
			return fmt.Errorf("config: operation %d: unknown kind %q", i, op.Kind)
		}
		switch op.Kind {
		case OpReplaceRange:
			if op.End < op.Start {
				return fmt.Errorf("config: operation %d: end %d before start %d", i, op.End, op.Start)
			}
		case OpAddComment:
			if op.Author == "" {
				return fmt.Errorf("config: operation %d: add_comment requires \"author\"", i)
			}
		case OpAddReply:
			if op.ParentParaID == "" {
				return fmt.Errorf("config: operation %d: add_reply requires \"parent_para_id\"", i)
			}
		case OpDeleteComment:
			if op.ParaID == "" {
				return fmt.Errorf("config: operation %d: delete_comment requires \"para_id\"", i)
			}
		case OpDocumentView:
			if op.Output == "" {
				return fmt.Errorf("config: operation %d: document_view requires \"output\"", i)
			}
		}
	}
	return nil
}

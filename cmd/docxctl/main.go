// Command docxctl is CLI glue around the safedocx editing engine: it opens
// a .docx, applies a scripted batch of edits from a YAML plan, writes a
// clean and a redlined .docx, and prints a JSON validation report. The CLI
// itself carries no editing logic — that all lives in docx/internal/docedit
// (spec §1 "the CLI is glue, not part of the core").
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/beevik/etree"

	"github.com/vortex/safedocx/docx"
	"github.com/vortex/safedocx/internal/config"
)

func main() {
	planPath := flag.String("plan", "plan.yaml", "Path to the YAML edit plan")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()
	logger.Info("docxctl starting", slog.String("log_level", cfg.LogLevel))

	if err := run(logger, *planPath); err != nil {
		logger.Error("docxctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, planPath string) error {
	plan, err := config.LoadPlan(planPath)
	if err != nil {
		return fmt.Errorf("docxctl: %w", err)
	}

	doc, err := docx.OpenFile(plan.Input)
	if err != nil {
		return fmt.Errorf("docxctl: opening %q: %w", plan.Input, err)
	}
	logger.Info("opened plan", slog.String("input", plan.Input), slog.Int("operations", len(plan.Operations)))

	var redlineBytes []byte
	snapshotTaken := false

	for i, op := range plan.Operations {
		if !snapshotTaken && (op.Kind == config.OpAcceptAll || op.Kind == config.OpRejectAll) {
			redlineBytes, err = doc.SaveToBytes(true)
			if err != nil {
				return fmt.Errorf("docxctl: snapshotting redline state: %w", err)
			}
			snapshotTaken = true
		}
		if err := applyOperation(doc, op); err != nil {
			return fmt.Errorf("docxctl: operation %d (%s): %w", i, op.Kind, err)
		}
		logger.Info("applied operation", slog.Int("index", i), slog.String("kind", op.Kind))
	}

	if !snapshotTaken {
		redlineBytes, err = doc.SaveToBytes(true)
		if err != nil {
			return fmt.Errorf("docxctl: saving redline output: %w", err)
		}
	}
	if err := os.WriteFile(plan.RedlineOut, redlineBytes, 0o644); err != nil {
		return fmt.Errorf("docxctl: writing %q: %w", plan.RedlineOut, err)
	}

	warnings, err := doc.Validate()
	if err != nil {
		return fmt.Errorf("docxctl: validating: %w", err)
	}
	report, err := json.MarshalIndent(reportEntries(warnings), "", "  ")
	if err != nil {
		return fmt.Errorf("docxctl: marshaling validation report: %w", err)
	}
	fmt.Println(string(report))

	cleanBytes, err := doc.SaveToBytes(false)
	if err != nil {
		return fmt.Errorf("docxctl: saving clean output: %w", err)
	}
	if err := os.WriteFile(plan.CleanOut, cleanBytes, 0o644); err != nil {
		return fmt.Errorf("docxctl: writing %q: %w", plan.CleanOut, err)
	}

	logger.Info("docxctl finished",
		slog.String("clean_output", plan.CleanOut),
		slog.String("redline_output", plan.RedlineOut),
		slog.Int("warnings", len(warnings)))
	return nil
}

func applyOperation(doc *docx.Document, op config.Operation) error {
	switch op.Kind {
	case config.OpAcceptAll:
		_, err := doc.AcceptAll()
		return err
	case config.OpRejectAll:
		_, err := doc.RejectAll()
		return err
	case config.OpReplaceRange:
		p, err := paragraphAt(doc, op.ParagraphIndex)
		if err != nil {
			return err
		}
		return doc.ReplaceRange(p, op.Start, op.End, []docx.ReplacementPart{{Text: op.Text}})
	case config.OpAddComment:
		p, err := paragraphAt(doc, op.ParagraphIndex)
		if err != nil {
			return err
		}
		_, err = doc.AddComment(p, op.Start, op.End, op.Author, op.Text, op.Initials)
		return err
	case config.OpAddReply:
		_, err := doc.AddReply(op.ParentParaID, op.Author, op.Text, op.Initials)
		return err
	case config.OpDeleteComment:
		_, err := doc.DeleteComment(op.ParaID)
		return err
	case config.OpAddFootnote:
		p, err := paragraphAt(doc, op.ParagraphIndex)
		if err != nil {
			return err
		}
		_, err = doc.AddFootnote(p, op.Text, op.AnchorText)
		return err
	case config.OpUpdateFootnote:
		return doc.UpdateFootnote(op.FootnoteID, op.Text)
	case config.OpDeleteFootnote:
		return doc.DeleteFootnote(op.FootnoteID)
	case config.OpDocumentView:
		nodes, err := doc.DocumentView(op.EmitFormattingTags)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling document view: %w", err)
		}
		return os.WriteFile(op.Output, data, 0o644)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// reportEntry is the JSON-safe projection of a docx.ValidationWarning: the
// raw element carries a Parent pointer that would cycle through encoding/json.
type reportEntry struct {
	Code   docx.ValidationCode `json:"code"`
	Detail string              `json:"detail"`
}

func reportEntries(warnings []docx.ValidationWarning) []reportEntry {
	out := make([]reportEntry, len(warnings))
	for i, w := range warnings {
		out[i] = reportEntry{Code: w.Code, Detail: w.Detail}
	}
	return out
}

func paragraphAt(doc *docx.Document, index int) (*etree.Element, error) {
	paragraphs, err := doc.Paragraphs()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(paragraphs) {
		return nil, fmt.Errorf("paragraph index %d out of range (0..%d)", index, len(paragraphs)-1)
	}
	return paragraphs[index], nil
}

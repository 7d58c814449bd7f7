package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"draftline-hq/meridian/pkg/policy"
	"draftline-hq/meridian/pkg/policy/engine"
	"draftline-hq/meridian/pkg/policy/normalize"
)

var evalFlags struct {
	file     string
	event    string
	snapshot string
	format   string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Resolve the effect for a lifecycle event",
	Long: `Resolve which policy fires for a lifecycle event against a run
context snapshot, offline.

The event file is JSON:

  {
    "kind": "onNodeComplete",
    "node": {
      "id": "hook-gen-1",
      "capabilityId": "gen.hook.v2",
      "kind": "generator",
      "stage": "hooks"
    },
    "elapsedMs": 0
  }

The snapshot file is the run context document, top-level {"facets": {...}}.

Examples:
  meridian eval --file policies.yaml --event event.json --snapshot snapshot.json
  meridian eval --file policies.yaml --event event.json`,
	RunE: evalEffect,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.file, "file", "f", "", "policy declaration file (required)")
	evalCmd.Flags().StringVarP(&evalFlags.event, "event", "e", "", "lifecycle event JSON file (required)")
	evalCmd.Flags().StringVarP(&evalFlags.snapshot, "snapshot", "s", "", "run context snapshot JSON file")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "text", "output format: text, json")
	evalCmd.MarkFlagRequired("file")
	evalCmd.MarkFlagRequired("event")
}

// evalEvent is the wire shape of the --event file.
type evalEvent struct {
	Kind      string `json:"kind"`
	Node      *node  `json:"node,omitempty"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

type node struct {
	ID           string `json:"id"`
	CapabilityID string `json:"capabilityId,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Label        string `json:"label,omitempty"`
	Stage        string `json:"stage,omitempty"`
}

func evalEffect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(evalFlags.file)
	if err != nil {
		return fmt.Errorf("cannot read declaration: %w", err)
	}

	raw, err := decodeDeclaration(evalFlags.file, data)
	if err != nil {
		return err
	}

	normalized, err := normalize.New(nil).Normalize(raw)
	if err != nil {
		return err
	}

	eventData, err := os.ReadFile(evalFlags.event)
	if err != nil {
		return fmt.Errorf("cannot read event: %w", err)
	}

	var ev evalEvent
	if err := json.Unmarshal(eventData, &ev); err != nil {
		return fmt.Errorf("cannot decode event: %w", err)
	}

	event := engine.Event{
		Kind:      policy.TriggerKind(ev.Kind),
		ElapsedMs: ev.ElapsedMs,
	}
	if ev.Node != nil {
		event.Node = &engine.NodeDescriptor{
			ID:           ev.Node.ID,
			CapabilityID: ev.Node.CapabilityID,
			Kind:         ev.Node.Kind,
			Label:        ev.Node.Label,
			Stage:        ev.Node.Stage,
		}
	}

	var snap engine.Snapshot
	if evalFlags.snapshot != "" {
		snapData, err := os.ReadFile(evalFlags.snapshot)
		if err != nil {
			return fmt.Errorf("cannot read snapshot: %w", err)
		}
		snap = engine.NewSnapshot(snapData)
	}

	effect := engine.New(nil).ResolveEffect(normalized, event, snap)

	if evalFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(effect)
	}

	if effect == nil {
		fmt.Println("no effect: no enabled policy matched")
		return nil
	}

	fmt.Printf("effect:    %s\n", effect.Kind)
	fmt.Printf("policy:    %s\n", effect.PolicyID)
	fmt.Printf("trigger:   %s (%s phase)\n", effect.Trigger, effect.Phase)
	if effect.NodeID != "" {
		fmt.Printf("node:      %s\n", effect.NodeID)
	}
	if effect.Rationale != "" {
		fmt.Printf("rationale: %s\n", effect.Rationale)
	}
	if effect.Next != "" {
		fmt.Printf("next:      %s\n", effect.Next)
	}
	if effect.Message != "" {
		fmt.Printf("message:   %s\n", effect.Message)
	}
	if effect.Event != "" {
		fmt.Printf("event:     %s\n", effect.Event)
	}
	if effect.Reason != "" {
		fmt.Printf("reason:    %s\n", effect.Reason)
	}

	return nil
}

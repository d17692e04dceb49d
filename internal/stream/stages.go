// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// =============================================================================
// STAGE KEYS
// =============================================================================

// Stage keys reported by the backend in stage_update events.
const (
	StageStart      = "start"
	StageConnected  = "connected"
	StageBelief     = "belief"
	StageDrive      = "drive"
	StageCollective = "collective"
	StageBehavior   = "behavior"
	StageMind       = "mind"
	StageReaction   = "reaction"
	StageComplete   = "complete"
)

var stageLabels = map[string]string{
	StageConnected:  "Connected",
	StageBelief:     "Belief System",
	StageDrive:      "Inner Drive",
	StageCollective: "Collective Unconscious",
	StageBehavior:   "Outer-Self Behavior",
	StageMind:       "Mind Interpretation",
	StageReaction:   "Outer-Self Reaction",
	StageComplete:   "Transformation Complete",
}

// pipelineOrder lists the processing stages in the order the backend runs them.
var pipelineOrder = []string{
	StageBelief,
	StageDrive,
	StageCollective,
	StageBehavior,
	StageMind,
	StageReaction,
}

// StageLabel returns the display label for a stage key.
// Unknown keys are returned unchanged.
func StageLabel(key string) string {
	if label, ok := stageLabels[key]; ok {
		return label
	}
	return key
}

// Stages returns the processing stage keys in pipeline order.
func Stages() []string {
	out := make([]string, len(pipelineOrder))
	copy(out, pipelineOrder)
	return out
}

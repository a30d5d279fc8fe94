package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zigral/zigral/pkg/models"
)

const systemPrompt = `You are an orchestrator that generates action sequences for sales prospecting tasks.
Break the user's command into specific, actionable steps executable by specialized agents.

Available Agents:
- linkedin: navigates LinkedIn, searches for prospects and collects profile information
- sheets: reads from and writes to the prospect spreadsheet

Respond with a JSON object containing:
1. "job_id": a unique identifier (optional, one is assigned if absent)
2. "objective": a short summary of the goal
3. "steps": the ordered list of actions, each with:
   - "agent": one of "linkedin", "sheets"
   - "action": the specific action to take
   - "target": (optional) the target of the action, such as a URL
   - "criteria": (optional) search or filtering criteria
   - "fields": (optional) fields to collect or update
   - "timeout": (optional) timeout in milliseconds

Ensure the steps are logical, sequential, and achievable by the named agents.`

// buildPrompt embeds the command text plus any persisted job context so the
// planner can ground new sequences in prior progress.
func buildPrompt(cmd models.Command, entry *models.ContextEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Command: %s\n", strings.TrimSpace(cmd.Command))

	lines := contextLines(cmd, entry)
	if len(lines) > 0 {
		b.WriteString("\nContext:\n")

		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nGenerate a detailed action sequence for this command.")

	return b.String()
}

func contextLines(cmd models.Command, entry *models.ContextEntry) []string {
	merged := make(map[string]any)

	if entry != nil {
		for k, v := range entry.ContextData {
			merged[k] = v
		}
	}

	for k, v := range cmd.Context {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %v", k, merged[k]))
	}

	return lines
}

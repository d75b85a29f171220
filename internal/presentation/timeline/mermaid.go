package timeline

import (
	"fmt"
	"strings"

	"github.com/aretw0/maquette/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a session's turn history.
// It applies semantic styling:
// - Instruction: ((Circle))
// - Turn: [Rectangle], labelled with sequence, category and verdict
// - Observation: [/Parallelogram/], attached with a dotted arrow
// - Terminal: ((Circle)), completed or failed
// Corrected turns keep their place in the chain so a reader can follow every
// attempt in order.
func GenerateMermaid(session *domain.Session) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    instruction((\"%s\"))\n", escapeMermaidLabel(session.Instruction)))

	prev := "instruction"
	for i := range session.Turns {
		turn := &session.Turns[i]
		id := fmt.Sprintf("turn%d", turn.Seq)

		label := fmt.Sprintf("#%d", turn.Seq)
		if turn.Script.Category != "" {
			label += " " + turn.Script.Category
		}
		if turn.Kind != "" {
			label += fmt.Sprintf(" <br/> %s", turn.Kind)
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escapeMermaidLabel(label)))

		arrow := "-->"
		if i > 0 && session.Turns[i-1].Kind != domain.KindSuccess {
			// A correction edge: the previous verdict drove this turn.
			arrow = "-- retry -->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", prev, arrow, id))

		if turn.Observation != nil {
			obsID := id + "obs"
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", obsID, turn.Observation.Kind))
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, obsID))
		}

		prev = id
	}

	if session.Terminal() {
		terminal := "completed"
		if session.Status == domain.SessionFailed {
			terminal = fmt.Sprintf("failed <br/> %s", session.FailureKind)
		}
		sb.WriteString(fmt.Sprintf("    terminal((\"%s\"))\n", escapeMermaidLabel(terminal)))
		sb.WriteString(fmt.Sprintf("    %s --> terminal\n", prev))
	}

	// Verdict styles. Black text keeps contrast on light backgrounds.
	sb.WriteString("\n    %% Verdict Styles\n")
	sb.WriteString("    classDef ok fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef corrected fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef fatal fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")

	for i := range session.Turns {
		turn := &session.Turns[i]
		id := fmt.Sprintf("turn%d", turn.Seq)
		switch turn.Kind {
		case domain.KindSuccess:
			sb.WriteString(fmt.Sprintf("    class %s ok;\n", id))
		case domain.KindBusy, domain.KindBudgetExhausted:
			sb.WriteString(fmt.Sprintf("    class %s fatal;\n", id))
		default:
			sb.WriteString(fmt.Sprintf("    class %s corrected;\n", id))
		}
	}

	return sb.String()
}

func escapeMermaidLabel(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

// internal/service/chat/prompt.go
package chat

import (
	"fmt"
	"strings"

	"otodealer-service/internal/domain/vehicle"
)

// Personality is the dealership-facing voice of the assistant.
type Personality struct {
	AgentName  string
	DealerName string
	Tone       string
	Knowledge  string
}

// LeadContext is what the conversation already knows about the customer.
type LeadContext struct {
	KnownName  string
	KnownCity  string
	LastIntent string
	IsStaff    bool
}

// PromptSpec is the structured prompt record. Composition is pure; the only
// string serialization happens in System/UserPreamble at the LLM boundary.
type PromptSpec struct {
	Identity    string
	Rules       []string
	Knowledge   string
	Inventory   []string
	AskIdentity bool
}

// BuildPromptSpec composes the prompt for one customer turn.
func BuildPromptSpec(p Personality, lc LeadContext, inventory []*vehicle.Vehicle) PromptSpec {
	spec := PromptSpec{
		Identity: fmt.Sprintf(
			"Kamu adalah %s, asisten penjualan %s. Jawab dalam Bahasa Indonesia, %s, singkat dan jelas.",
			p.AgentName, p.DealerName, p.Tone),
		Knowledge:   p.Knowledge,
		AskIdentity: lc.KnownName == "" && !lc.IsStaff,
	}

	spec.Rules = append(spec.Rules,
		"Jangan mengarang harga atau stok di luar daftar unit yang diberikan.",
		"Jangan menjanjikan diskon; arahkan negosiasi ke tim sales.",
		"Tawarkan test drive saat pelanggan menunjukkan minat serius.",
	)
	if spec.AskIdentity {
		spec.Rules = append(spec.Rules,
			"Pelanggan baru: tanyakan nama dan lokasi dengan sopan sebelum membahas detail unit.")
	} else if lc.KnownName != "" {
		spec.Rules = append(spec.Rules,
			fmt.Sprintf("Sapa pelanggan dengan nama %s.", lc.KnownName))
	}
	if lc.IsStaff {
		spec.Rules = append(spec.Rules,
			"Penanya adalah staf internal; jawab faktual tanpa basa-basi penjualan.")
	}

	for _, v := range inventory {
		spec.Inventory = append(spec.Inventory,
			fmt.Sprintf("%s %s %d %s - %d (%s)", v.Make, v.Model, v.Year, v.Color, v.Price, v.NumberPlate))
	}

	return spec
}

// System serializes the PromptSpec into the system message. This is the
// boundary between the structured prompt and LLM-facing text.
func (s PromptSpec) System() string {
	var b strings.Builder
	b.WriteString(s.Identity)
	b.WriteString("\n\nAturan:\n")
	for _, r := range s.Rules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	if s.Knowledge != "" {
		b.WriteString("\nInfo dealer:\n")
		b.WriteString(s.Knowledge)
		b.WriteString("\n")
	}
	if len(s.Inventory) > 0 {
		b.WriteString("\nUnit tersedia saat ini:\n")
		for _, line := range s.Inventory {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

package chat

import (
	"strings"
	"testing"

	"otodealer-service/internal/domain/vehicle"
)

func demoPersonality() Personality {
	return Personality{
		AgentName:  "Sinta",
		DealerName: "Sumber Jaya Motor",
		Tone:       "ramah",
		Knowledge:  "Buka setiap hari 09.00-17.00.",
	}
}

func TestBuildPromptSpecAsksIdentityForUnknownCustomer(t *testing.T) {
	spec := BuildPromptSpec(demoPersonality(), LeadContext{}, nil)
	if !spec.AskIdentity {
		t.Fatal("unknown customer must be asked for identity")
	}
	sys := spec.System()
	if !strings.Contains(sys, "tanyakan nama dan lokasi") {
		t.Errorf("system prompt missing identity rule:\n%s", sys)
	}
}

func TestBuildPromptSpecUsesKnownName(t *testing.T) {
	spec := BuildPromptSpec(demoPersonality(), LeadContext{KnownName: "Budi"}, nil)
	if spec.AskIdentity {
		t.Fatal("known customer must not be re-asked for identity")
	}
	if !strings.Contains(spec.System(), "Budi") {
		t.Error("system prompt should greet the customer by name")
	}
}

func TestBuildPromptSpecStaffSkipsIdentity(t *testing.T) {
	spec := BuildPromptSpec(demoPersonality(), LeadContext{IsStaff: true}, nil)
	if spec.AskIdentity {
		t.Fatal("staff hybrid questions must not trigger the identity ask")
	}
}

func TestPromptSpecIncludesInventoryExcerpt(t *testing.T) {
	units := []*vehicle.Vehicle{
		{Make: "Toyota", Model: "Avanza", Year: 2019, Color: "Hitam", Price: 150_000_000, NumberPlate: "B1234CD"},
	}
	spec := BuildPromptSpec(demoPersonality(), LeadContext{KnownName: "Budi"}, units)
	sys := spec.System()
	if !strings.Contains(sys, "Avanza") || !strings.Contains(sys, "B1234CD") {
		t.Errorf("system prompt missing inventory excerpt:\n%s", sys)
	}
}

package match

import (
	"strings"
	"testing"
)

func TestKeywords_CaseInsensitive(t *testing.T) {
	title := "Proud to launch our new BATTERY CYCLER line"
	snippet := "The battery cycler supports 300A channels."

	hits := Keywords(title, snippet, []string{"Battery Cycler", "Cell Tester"})

	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Keyword != "Battery Cycler" {
		t.Errorf("expected original keyword casing kept, got %q", hits[0].Keyword)
	}
	if hits[0].Count != 2 {
		t.Errorf("expected 2 occurrences across title and snippet, got %d", hits[0].Count)
	}
}

func TestKeywords_OrderFollowsConfig(t *testing.T) {
	text := "BESS and battery energy storage system in one post"

	hits := Keywords(text, "", []string{"Battery Energy Storage System", "BESS"})

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Keyword != "Battery Energy Storage System" || hits[1].Keyword != "BESS" {
		t.Errorf("expected keyword order preserved, got %+v", hits)
	}
}

func TestKeywords_NoHits(t *testing.T) {
	hits := Keywords("Unrelated post about hiring", "", []string{"Battery Tester"})
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestKeywords_EmptyInputs(t *testing.T) {
	if hits := Keywords("", "", nil); hits != nil {
		t.Errorf("expected nil for no keywords, got %+v", hits)
	}
	if hits := Keywords("", "", []string{"  "}); hits != nil {
		t.Errorf("expected blank keywords skipped, got %+v", hits)
	}
}

func TestNames(t *testing.T) {
	hits := []KeywordHit{{Keyword: "BESS", Count: 3}, {Keyword: "PCS battery", Count: 1}}
	names := Names(hits)
	if len(names) != 2 || names[0] != "BESS" || names[1] != "PCS battery" {
		t.Errorf("unexpected names: %v", names)
	}
	if Names(nil) != nil {
		t.Error("expected nil for no hits")
	}
}

func BenchmarkKeywords(b *testing.B) {
	title := "Commissioning update: battery formation ageing hall complete"
	snippet := strings.Repeat("Cell formation system and formation testing equipment installed. ", 8)
	keywords := []string{
		"Lithium ion cell assembly line", "Battery cell manufacturing", "Pouch cell line",
		"Cylindrical cell line", "Prismatic cell assembly", "Battery formation ageing",
		"Cell formation system", "Formation testing equipment", "Environmental chamber battery",
		"Advanced chemistry cell manufacturing", "Cell Manufacturing Plant",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		Keywords(title, snippet, keywords)
	}
}

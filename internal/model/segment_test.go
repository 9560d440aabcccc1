package model

import "testing"

func TestSegmentValidate(t *testing.T) {
	valid := Segment{StartMS: 0, EndMS: 1000, Text: "hi"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	cases := []Segment{
		{StartMS: -1, EndMS: 1000, Text: "hi"},
		{StartMS: 2000, EndMS: 1000, Text: "hi"},
		{StartMS: 0, EndMS: 1000, Text: ""},
	}
	for _, seg := range cases {
		if err := seg.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", seg)
		}
	}
}

func TestParseModel(t *testing.T) {
	cases := map[string]Model{
		"tiny": ModelTiny, "Tiny": ModelTiny, "TINY": ModelTiny, "TiNy": ModelTiny,
		"base": ModelBase, "BasE": ModelBase, "": ModelBase,
		"small": ModelSmall, "SMALL": ModelSmall,
		"medium": ModelMedium, "Medium": ModelMedium,
		"large": ModelLarge, "LARGE": ModelLarge,
	}
	for input, want := range cases {
		got, err := ParseModel(input)
		if err != nil {
			t.Errorf("ParseModel(%q) error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseModel(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseModel("huge"); err == nil {
		t.Fatal("expected error for unrecognized model name")
	}
}

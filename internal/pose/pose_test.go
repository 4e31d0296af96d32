package pose

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Pose{"A1": 30, "A6": -345}

	text, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 2 || got["A1"] != 30 || got["A6"] != -345 {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestDecodeCanonicalText(t *testing.T) {
	p, err := Decode(`{"A1": 30, "A6": -345}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p["A1"] != 30 || p["A6"] != -345 {
		t.Errorf("unexpected pose: %v", p)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{
		"not json",
		`{"A1": "thirty"}`,
		`[1, 2, 3]`,
		`null`,
		``,
	}
	for _, text := range cases {
		if _, err := Decode(text); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("Decode(%q): expected ErrMalformedPayload, got %v", text, err)
		}
	}
}

func TestClone(t *testing.T) {
	p := Pose{"A1": 1}
	clone := p.Clone()
	clone["A1"] = 2
	if p["A1"] != 1 {
		t.Error("Clone shares storage with original")
	}
}

func TestRestrict(t *testing.T) {
	p := Pose{"A1": 1, "A2": 2, "A3": 3}
	got := p.Restrict(Pose{"A1": 0, "A3": 0, "A9": 0})
	if len(got) != 2 || got["A1"] != 1 || got["A3"] != 3 {
		t.Errorf("unexpected restriction: %v", got)
	}
}

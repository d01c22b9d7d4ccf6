package encoding

import (
	"errors"
	"testing"
)

type valueMap map[string]any

func (m valueMap) Values() map[string]any { return m }

func TestPackDeterministic(t *testing.T) {
	a := map[string]any{"integrationID": "abc", "region": "us-south", "clientVersion": "latest"}
	b := map[string]any{"clientVersion": "latest", "region": "us-south", "integrationID": "abc"}

	for i := 0; i < 20; i++ {
		pa, err := Pack(a)
		if err != nil {
			t.Fatalf("Pack(a) error = %v", err)
		}
		pb, err := Pack(b)
		if err != nil {
			t.Fatalf("Pack(b) error = %v", err)
		}
		if string(pa) != string(pb) {
			t.Fatalf("Pack is not deterministic for equal maps")
		}
	}
}

func TestPackUnsupported(t *testing.T) {
	_, err := Pack(map[string]any{"onLoad": func() {}})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Pack(func) error = %v, want ErrUnsupported", err)
	}
}

func TestUnpack(t *testing.T) {
	packed, err := Pack(map[string]any{"region": "eu-de", "debug": true})
	if err != nil {
		t.Fatalf("Pack error = %v", err)
	}

	m, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack error = %v", err)
	}
	if m["region"] != "eu-de" {
		t.Errorf("region = %v, want eu-de", m["region"])
	}
	if m["debug"] != true {
		t.Errorf("debug = %v, want true", m["debug"])
	}
}

func TestUnpackInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1}},
		{"not a map", []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpack(tt.data); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Unpack(%x) error = %v, want ErrInvalidFormat", tt.data, err)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := valueMap{"integrationID": "abc", "region": "us-south"}
	b := valueMap{"region": "us-south", "integrationID": "abc"}
	c := valueMap{"integrationID": "abc", "region": "eu-gb"}

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint error = %v", err)
	}
	if len(fa) != 8 {
		t.Errorf("len(fingerprint) = %d, want 8", len(fa))
	}

	fb, _ := Fingerprint(b)
	if fa != fb {
		t.Errorf("equal values fingerprint differently: %s vs %s", fa, fb)
	}

	fc, _ := Fingerprint(c)
	if fa == fc {
		t.Errorf("different values share fingerprint %s", fa)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	original := valueMap{"integrationID": "abc", "namespace": "support"}

	token, err := Token(original)
	if err != nil {
		t.Fatalf("Token error = %v", err)
	}

	decoded, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken error = %v", err)
	}
	if decoded["namespace"] != "support" {
		t.Errorf("namespace = %v, want support", decoded["namespace"])
	}
}

func TestParseTokenInvalid(t *testing.T) {
	if _, err := ParseToken("!!not-base64!!"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseToken error = %v, want ErrInvalidFormat", err)
	}
}

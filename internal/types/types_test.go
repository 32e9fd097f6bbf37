package types

import "testing"

func TestNewBranchName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"simple", "main", false},
		{"slash-scoped", "feature/foo", false},
		{"empty", "", true},
		{"reserved-at", "@", true},
		{"dotdot", "feature..foo", true},
		{"at-brace", "feature@{1}", true},
		{"double-slash", "feature//foo", true},
		{"trailing-slash", "feature/", true},
		{"trailing-lock", "feature.lock", true},
		{"trailing-dot", "feature.", true},
		{"leading-dot", ".feature", true},
		{"leading-dash", "-feature", true},
		{"control-char", "feat\x01ure", true},
		{"glob-char", "feat*ure", true},
		{"space", "feat ure", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBranchName(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBranchName(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestNewOid(t *testing.T) {
	sha1 := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	o, err := NewOid(sha1)
	if err != nil {
		t.Fatalf("NewOid(%q) unexpected error: %v", sha1, err)
	}
	if got, want := o.String(), "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"; got != want {
		t.Errorf("String() = %q, want %q (lowercased)", got, want)
	}

	if _, err := NewOid("not-hex-and-wrong-length"); err == nil {
		t.Error("NewOid() with invalid input should fail")
	}

	sha256 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0"
	if _, err := NewOid(sha256); err == nil {
		t.Error("NewOid() with 65 hex digits should fail")
	}
}

func TestOid_Abbreviate(t *testing.T) {
	o, err := NewOid("abcdef0123456789abcdef0123456789abcdef01")
	if err != nil {
		t.Fatalf("NewOid() unexpected error: %v", err)
	}
	if got, want := o.Abbreviate(7), "abcdef0"; got != want {
		t.Errorf("Abbreviate(7) = %q, want %q", got, want)
	}
	if got := o.Abbreviate(100); got != o.String() {
		t.Errorf("Abbreviate(100) = %q, want full string %q", got, o.String())
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	r1, _ := NewRefName("refs/heads/a")
	r2, _ := NewRefName("refs/heads/b")
	o1, _ := NewOid("1111111111111111111111111111111111111111")
	o2, _ := NewOid("2222222222222222222222222222222222222222")

	f1 := NewFingerprint([]RefOidPair{{Ref: r1, Oid: o1}, {Ref: r2, Oid: o2}})
	f2 := NewFingerprint([]RefOidPair{{Ref: r2, Oid: o2}, {Ref: r1, Oid: o1}})

	if !f1.Equal(f2) {
		t.Error("Fingerprint should be order-independent over its input list")
	}

	f3 := NewFingerprint([]RefOidPair{{Ref: r1, Oid: o2}, {Ref: r2, Oid: o1}})
	if f1.Equal(f3) {
		t.Error("Fingerprint should differ when oids are swapped")
	}
}

func TestUtcTimestamp_RoundTrip(t *testing.T) {
	ts, err := ParseUtcTimestamp("2026-07-31T12:00:00Z")
	if err != nil {
		t.Fatalf("ParseUtcTimestamp() unexpected error: %v", err)
	}
	data, err := ts.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() unexpected error: %v", err)
	}
	var rt UtcTimestamp
	if err := rt.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() unexpected error: %v", err)
	}
	if !rt.Time().Equal(ts.Time()) {
		t.Errorf("round trip: got %v, want %v", rt, ts)
	}
}

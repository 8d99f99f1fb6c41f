package normalize

import "testing"

func TestCompanyNameEquivalence(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"ABC Corp.", "ABC CORPORATION"},
		{"abc, inc", "ABC"},
		{"Joe's Plumbing LLC", "JOES PLUMBING"},
		{"Acme Holdings Co", "ACME  HOLDINGS"},
		{"Blue-Sky Ventures L.L.C", "BLUESKY VENTURES"},
		{"North/South Trading PLLC", "NORTHSOUTH TRADING"},
	}
	for _, c := range cases {
		if got, want := CompanyName(c.a), CompanyName(c.b); got != want {
			t.Errorf("CompanyName(%q)=%q, CompanyName(%q)=%q, expected equal", c.a, got, c.b, want)
		}
	}
}

func TestCompanyNameValues(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ABC Corp.", "ABC"},
		{"  ABC   CORPORATION  ", "ABC"},
		{"Fast Cash 4 U Inc", "FAST CASH 4 U"},
		{"LLC", "LLC"}, // nothing left after suffix removal keeps the cleaned form
		{"", ""},
	}
	for _, c := range cases {
		if got := CompanyName(c.in); got != c.want {
			t.Errorf("CompanyName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAccountNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1234-5678-9012", "123456789012"},
		{" 1234 5678 ", "12345678"},
		{"no digits", ""},
		{"a1b2c3", "123"},
	}
	for _, c := range cases {
		if got := AccountNumber(c.in); got != c.want {
			t.Errorf("AccountNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAccountHashIgnoresFormatting(t *testing.T) {
	a := AccountHash("1234-5678-9012")
	b := AccountHash("123456789012")
	if a != b {
		t.Fatalf("hashes differ for equivalent account numbers: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha-256 (64 chars), got %d", len(a))
	}
	if c := AccountHash("123456789013"); c == a {
		t.Fatalf("distinct account numbers must not collide trivially")
	}
}

func TestMaskAccountNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1234-5678-9012", "****9012"},
		{"9012", "****9012"},
		{"901", "****"},
		{"", "****"},
	}
	for _, c := range cases {
		if got := MaskAccountNumber(c.in); got != c.want {
			t.Errorf("MaskAccountNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

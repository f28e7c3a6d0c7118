package contact

import "testing"

func TestNormalize_Email(t *testing.T) {
	got := Normalize("  Aung.Min@Example.COM ")
	want := "aung.min@example.com"
	if got != want {
		t.Errorf("Normalize email = %q, want %q", got, want)
	}
}

func TestNormalize_Phone(t *testing.T) {
	cases := map[string]string{
		"+95 9 1234 5678":   "+95912345678",
		"09-123-456-78":     "0912345678",
		"(09) 123 456 78":   "0912345678",
		"+95912345678":      "+95912345678",
		"ph: 0912345678 ok": "0912345678",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"+95 9 1234 5678", "Foo@Bar.Com", "09 123", "", "abc"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("a@b.c") {
		t.Error("expected a@b.c to be an email")
	}
	if IsEmail("+95912345678") {
		t.Error("expected phone not to be an email")
	}
}

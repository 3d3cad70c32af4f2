package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if hash == "correct-horse" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "correct-horse"); err != nil {
		t.Fatalf("CheckPassword rejected the right password: %v", err)
	}

	if err := CheckPassword(hash, "battery-staple"); err == nil {
		t.Fatalf("CheckPassword accepted the wrong password")
	}
}

func TestNewResetCode(t *testing.T) {
	seen := map[string]bool{}

	for i := 0; i < 20; i++ {
		code, err := NewResetCode()
		if err != nil {
			t.Fatalf("NewResetCode error: %v", err)
		}

		if len(code) != ResetCodeLength {
			t.Fatalf("expected %d chars, got %q", ResetCodeLength, code)
		}

		for _, c := range code {
			switch {
			case c >= 'a' && c <= 'z':
			case c >= 'A' && c <= 'Z':
			case c >= '0' && c <= '9':
			default:
				t.Fatalf("non-alphanumeric character %q in code %q", c, code)
			}
		}

		seen[code] = true
	}

	if len(seen) < 2 {
		t.Fatalf("codes do not look random: %v", seen)
	}
}

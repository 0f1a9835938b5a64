package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!!", "hello-world"},
		{"", ""},
		{"Display What's Included Section", "display-whats-included-section"},
		{"Don’t Panic", "dont-panic"},
		{"'quoted'", "quoted"},
		{"  --Leading and trailing--  ", "leading-and-trailing"},
		{"Create Help & Support Screen", "create-help-support-screen"},
		{"Épic café", "pic-caf"},
		{"!!!", ""},
		{"v2.0 Release", "v2-0-release"},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Errorf("Make(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMakeIsDeterministic(t *testing.T) {
	inputs := []string{"Hello, World!!", "Story 6.6: Pricing", "", "a__b--c"}
	for _, in := range inputs {
		first := Make(in)
		second := Make(in)
		if first != second {
			t.Fatalf("Make(%q) not deterministic: %q vs %q", in, first, second)
		}
		if again := Make(first); again != first {
			t.Fatalf("Make should be idempotent on its output: Make(%q) = %q", first, again)
		}
	}
}

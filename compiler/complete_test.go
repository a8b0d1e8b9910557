package compiler

import "testing"

func TestSignaturePrefix(t *testing.T) {
	tests := []struct {
		typed string
		want  string
		ok    bool
	}{
		{"pri", "pri", true},
		{"print ", "print ", true},
		{"item 2 o", "item $ o", true},
		{"item (length of $xs) ", "item $ ", true},
		{"set $x to", "set $ to", true},
		{"   add 'a'", "add $ ", true},
		{"", "", true},
		{"print 'open", "", false},
		{"when 1:", "", false},
		{"1 +", "", false},
		{"print (1", "", false},
	}
	for _, tc := range tests {
		got, ok := SignaturePrefix(tc.typed)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("SignaturePrefix(%q) = %q, %v; want %q, %v", tc.typed, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOpensBlock(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"when 1:", true},
		{"repeat 3 times:  # again", true},
		{"set $x to:", true},
		{"print 'a:'", false},
		{"print 1", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := OpensBlock(tc.line); got != tc.want {
			t.Errorf("OpensBlock(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestInsertWords(t *testing.T) {
	tests := []struct {
		rest []string
		want string
	}{
		{[]string{"of", "$"}, "of"},
		{[]string{"each", "$", "in", "$", ":"}, "each"},
		{[]string{"from", "the", "$"}, "from the"},
		{[]string{"$", "times", ":"}, ""},
		{[]string{"list"}, "list"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := InsertWords(tc.rest); got != tc.want {
			t.Errorf("InsertWords(%v) = %q, want %q", tc.rest, got, tc.want)
		}
	}
}

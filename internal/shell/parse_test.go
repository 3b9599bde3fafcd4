package shell

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"ls", []string{"ls"}},
		{"  cd   /a/b  ", []string{"cd", "/a/b"}},
		{`touch "my file.txt"`, []string{"touch", "my file.txt"}},
		{`echo 'a b' c "d"`, []string{"echo", "a b", "c", "d"}},
		{`echo ""`, []string{"echo", ""}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := Tokenize(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitChain(t *testing.T) {
	got := SplitChain("mkdir a&&cd a &&  && ls   ")
	want := []string{"mkdir a", "cd a", "ls"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitChain = %q, want %q", got, want)
	}
}

func TestSubstitute(t *testing.T) {
	vars := ParseVariables("$SYS=/sys\nnot a var\n$HOME = /home/me\n$SYS=/system")

	tests := []struct {
		line, want string
	}{
		{"cd $SYS", "cd /system"},
		{"ls $SYS/os", "ls /system/os"},
		{"ls $SYSTEM", "ls $SYSTEM"},
		{"cd $HOME && ls $SYS", "cd /home/me && ls /system"},
		{"echo SYS", "echo SYS"},
	}
	for _, tt := range tests {
		if got := Substitute(tt.line, vars); got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

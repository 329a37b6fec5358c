package fetch

import (
	"errors"
	"testing"
)

func TestClassifyCloneError(t *testing.T) {
	tests := map[string]struct {
		output string
		want   error
	}{
		"not found":        {output: "fatal: repository 'x' not found\nrepository not found", want: ErrRepoNotFound},
		"prompts disabled": {output: "fatal: could not read Username: terminal prompts disabled", want: ErrRepoNotFound},
		"auth":             {output: "fatal: Authentication failed for 'https://github.com/a/b'", want: ErrAuthentication},
		"denied":           {output: "git@github.com: Permission denied (publickey).", want: ErrAuthentication},
		"dns":              {output: "fatal: unable to access: Could not resolve host: github.com", want: ErrTransient},
		"refused":          {output: "fatal: unable to access: Connection refused", want: ErrTransient},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := classifyCloneError(tt.output, "kasper", "agentpack")
			if !errors.Is(err, tt.want) {
				t.Errorf("classifyCloneError(%q) = %v, want %v", tt.output, err, tt.want)
			}
		})
	}

	err := classifyCloneError("something else entirely", "kasper", "agentpack")
	for _, sentinel := range []error{ErrRepoNotFound, ErrAuthentication, ErrTransient} {
		if errors.Is(err, sentinel) {
			t.Errorf("unclassifiable output mapped to %v", sentinel)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("a\nb\nc"); got != "a" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("  single  "); got != "single" {
		t.Errorf("firstLine = %q", got)
	}
}

func TestRemoteUsernamePatterns(t *testing.T) {
	tests := map[string]string{
		"git@github.com:kasper/agentpack.git":  "kasper",
		"https://github.com/kasper/agentpack":  "kasper",
		"http://gitlab.com/acme/tools.git":     "acme",
		"git@gitlab.example.com:acme/x.git":    "acme",
		"not-a-remote":                         "",
		"https://github.com/justowner":         "",
	}

	for remote, want := range tests {
		got := ""
		if m := sshRemote.FindStringSubmatch(remote); m != nil {
			got = m[1]
		} else if m := httpsRemote.FindStringSubmatch(remote); m != nil {
			got = m[1]
		}
		if got != want {
			t.Errorf("username(%q) = %q, want %q", remote, got, want)
		}
	}
}

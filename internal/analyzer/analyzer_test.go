package analyzer

import (
	"strings"
	"testing"
)

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func TestAnalyze_Go(t *testing.T) {
	content := `package auth

type Claims struct {
	Sub string
}

func ParseToken(raw string) (*Claims, error) {
	return nil, nil
}

func (c *Claims) Valid() bool { return c.Sub != "" }
`
	in := Analyze("internal/auth/token.go", content)
	if !strings.Contains(in.Summary, "functions") {
		t.Errorf("summary missing functions: %q", in.Summary)
	}
	if !strings.Contains(in.Summary, "ParseToken") {
		t.Errorf("summary missing function name: %q", in.Summary)
	}
	if !strings.Contains(in.Summary, "types") || !strings.Contains(in.Summary, "Claims") {
		t.Errorf("summary missing type info: %q", in.Summary)
	}
	if !hasTag(in.Tags, "go") {
		t.Errorf("tags = %v, want go", in.Tags)
	}
}

func TestAnalyze_GoTests(t *testing.T) {
	content := "package auth\n\nfunc TestParseToken(t *testing.T) {}\nfunc TestValid(t *testing.T) {}\n"
	in := Analyze("token_test.go", content)
	if !strings.Contains(in.Summary, "2 test functions") {
		t.Errorf("summary = %q", in.Summary)
	}
	if !hasTag(in.Tags, "tests") {
		t.Errorf("tags = %v, want tests", in.Tags)
	}
}

func TestAnalyze_TypeScriptReact(t *testing.T) {
	content := `export const LoginForm = (props) => {
  const [user, setUser] = useState("")
  return <form/>
}
class SessionStore {}
`
	in := Analyze("src/LoginForm.tsx", content)
	if !strings.Contains(in.Summary, "LoginForm") {
		t.Errorf("summary = %q", in.Summary)
	}
	if !hasTag(in.Tags, "react") || !hasTag(in.Tags, "module") {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestAnalyze_Python(t *testing.T) {
	content := "class Worker:\n    def run(self):\n        pass\n\ndef main():\n    pass\n"
	in := Analyze("worker.py", content)
	if !strings.Contains(in.Summary, "2 functions") || !strings.Contains(in.Summary, "1 classes") {
		t.Errorf("summary = %q", in.Summary)
	}
}

func TestAnalyze_Markdown(t *testing.T) {
	in := Analyze("README.md", "# Setup\n\ntext\n\n## Running locally\n")
	if !strings.Contains(in.Summary, "Setup") || !strings.Contains(in.Summary, "Running locally") {
		t.Errorf("summary = %q", in.Summary)
	}
	if !hasTag(in.Tags, "docs") {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestAnalyze_SQL(t *testing.T) {
	content := "CREATE TABLE users (id INTEGER);\nCREATE INDEX idx_users ON users(id);\n"
	in := Analyze("001_init.sql", content)
	if !strings.Contains(in.Summary, "create table users") {
		t.Errorf("summary = %q", in.Summary)
	}
	if !hasTag(in.Tags, "schema") {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestAnalyze_PackageManifest(t *testing.T) {
	in := Analyze("package.json", `{"name":"app","dependencies":{"react":"18"}}`)
	if !hasTag(in.Tags, "dependencies") {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestAnalyze_UnknownExtension(t *testing.T) {
	in := Analyze("data.bin", "\x00\x01")
	if in.Summary != "" {
		t.Errorf("generic summary = %q, want empty", in.Summary)
	}
}

func TestAnalyze_EmptySummaryIsLegitimate(t *testing.T) {
	// A Go file with no declarations produces tags but no summary.
	in := Analyze("doc.go", "// Package doc.\npackage doc\n")
	if in.Summary != "" {
		t.Errorf("summary = %q, want empty", in.Summary)
	}
	if !hasTag(in.Tags, "go") {
		t.Errorf("tags = %v", in.Tags)
	}
}

package edx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/texdnd/internal/grader"
)

var catsoopTemplate = template.Must(template.New("catsoop").Parse(`<!-- {{ .Name }}: drag and drop problem -->

<question pythonic>
csq_interface = 'drag_and_drop'
csq_name = '{{ .Name }}'
csq_cfn = '{{ .Cfn }}'
csq_dnd_xml = r"""
{{ .XML }}"""
csq_check = r"""
{{ .Check }}
"""
</question>
{{- if .Feedback }}

<solution>
{{ .Feedback }}
</solution>
{{- end }}
`))

// Catsoop renders the problem as a catsoop markdown page. The question
// carries the edX descriptor and the check artifact verbatim.
func Catsoop(name string, p *Problem, a *grader.Artifact, feedback string) ([]byte, error) {
	x, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	check, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode check artifact: %w", err)
	}
	if strings.Contains(string(x), `"""`) || strings.Contains(string(check), `"""`) {
		return nil, fmt.Errorf("problem %s cannot be quoted for catsoop", name)
	}

	var buf bytes.Buffer
	err = catsoopTemplate.Execute(&buf, map[string]string{
		"Name":     name,
		"Cfn":      a.Cfn,
		"XML":      string(x),
		"Check":    string(check),
		"Feedback": strings.TrimSpace(feedback),
	})
	if err != nil {
		return nil, fmt.Errorf("execute catsoop template: %w", err)
	}
	return buf.Bytes(), nil
}

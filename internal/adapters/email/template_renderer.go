package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	"sync"
	texttemplate "text/template"

	"eventadmission/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// executor is satisfied by both html/template and text/template.
type executor interface {
	Execute(w io.Writer, data any) error
}

// templateRenderer renders the embedded registration templates. Each template name maps to three
// files: <name>_subject.txt, <name>.html and <name>.txt. Parsed files are cached.
type templateRenderer struct {
	mu     sync.Mutex
	parsed map[string]executor
}

func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{parsed: make(map[string]executor)}
}

func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	if subject, err = r.execute(templateName+"_subject.txt", data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	if htmlBody, err = r.execute(templateName+".html", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	if textBody, err = r.execute(templateName+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func (r *templateRenderer) execute(file string, data any) (string, error) {
	tmpl, err := r.lookup(file)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// lookup parses file on first use. HTML files get contextual escaping.
func (r *templateRenderer) lookup(file string) (executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.parsed[file]; ok {
		return tmpl, nil
	}

	raw, err := templateFS.ReadFile("templates/" + file)
	if err != nil {
		return nil, err
	}
	var tmpl executor
	if strings.HasSuffix(file, ".html") {
		tmpl, err = htmltemplate.New(file).Option("missingkey=error").Parse(string(raw))
	} else {
		tmpl, err = texttemplate.New(file).Option("missingkey=error").Parse(string(raw))
	}
	if err != nil {
		return nil, err
	}
	r.parsed[file] = tmpl
	return tmpl, nil
}

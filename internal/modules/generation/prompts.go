package generation

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

type PromptName string

const (
	PromptQuestionsBySubject    PromptName = "questions_by_subject"
	PromptQuestionsByTopic      PromptName = "questions_by_topic"
	PromptChatStart             PromptName = "chat_start"
	PromptChatContinue          PromptName = "chat_continue"
	PromptFlashcardFromQuestion PromptName = "flashcard_from_question"
	PromptResearchSearch        PromptName = "research_search"
	PromptResearchContent       PromptName = "research_content"
	PromptResearchFlashcards    PromptName = "research_flashcards"
)

// Input carries every field any catalog template may reference. Unused fields render empty.
type Input struct {
	Count         int
	SubjectName   string
	Topic         string
	QuestionText  string
	Options       string
	CorrectAnswer string
	Explanation   string
	Query         string
	History       string
	Previous      string
}

// Spec is one catalog entry as declared in prompts.yaml.
type Spec struct {
	Version int    `yaml:"version"`
	System  string `yaml:"system"`
	User    string `yaml:"user"`
}

// Template is a compiled Spec.
type Template struct {
	Name    PromptName
	Version int
	System  func(in Input) string
	User    func(in Input) string
}

//go:embed prompts.yaml
var catalogYAML []byte

var catalog = mustLoadCatalog(catalogYAML)

func makeTemplate(name PromptName, s Spec) (Template, error) {
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", name)
	}
	if strings.TrimSpace(s.User) == "" {
		return Template{}, fmt.Errorf("missing user prompt for %s", name)
	}
	sysT, err := template.New("system").Option("missingkey=zero").Parse(s.System)
	if err != nil {
		return Template{}, fmt.Errorf("%s system template parse: %w", name, err)
	}
	userT, err := template.New("user").Option("missingkey=zero").Parse(s.User)
	if err != nil {
		return Template{}, fmt.Errorf("%s user template parse: %w", name, err)
	}
	render := func(t *template.Template, in Input) string {
		var b bytes.Buffer
		_ = t.Execute(&b, in)
		return strings.TrimSpace(b.String())
	}
	return Template{
		Name:    name,
		Version: s.Version,
		System:  func(in Input) string { return render(sysT, in) },
		User:    func(in Input) string { return render(userT, in) },
	}, nil
}

func loadCatalog(raw []byte) (map[PromptName]Template, error) {
	var specs map[string]Spec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}
	out := make(map[PromptName]Template, len(specs))
	for name, s := range specs {
		t, err := makeTemplate(PromptName(name), s)
		if err != nil {
			return nil, err
		}
		out[t.Name] = t
	}
	return out, nil
}

func mustLoadCatalog(raw []byte) map[PromptName]Template {
	c, err := loadCatalog(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the named template.
func Get(name PromptName) (Template, error) {
	t, ok := catalog[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt %q not registered", name)
	}
	return t, nil
}

// Render returns the system and user prompts for name.
func Render(name PromptName, in Input) (system string, user string, err error) {
	t, err := Get(name)
	if err != nil {
		return "", "", err
	}
	return t.System(in), t.User(in), nil
}

// Names lists the catalog, sorted.
func Names() []PromptName {
	out := make([]PromptName, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

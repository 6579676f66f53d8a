package generation

import "strings"

const (
	SubjectMathematics     = "mathematics"
	SubjectLanguages       = "languages"
	SubjectHumanSciences   = "human_sciences"
	SubjectNaturalSciences = "natural_sciences"
	SubjectAll             = "all"
)

var subjectDisplayNames = map[string]string{
	SubjectMathematics:     "Matemática",
	SubjectLanguages:       "Linguagens e suas Tecnologias",
	SubjectHumanSciences:   "Ciências Humanas e suas Tecnologias",
	SubjectNaturalSciences: "Ciências da Natureza e suas Tecnologias",
	SubjectAll:             "todas as áreas do conhecimento (Matemática, Linguagens, Ciências Humanas e Ciências da Natureza)",
}

var localizedSubjects = map[string]string{
	"matemática":           SubjectMathematics,
	"linguagens":           SubjectLanguages,
	"ciências humanas":     SubjectHumanSciences,
	"ciências da natureza": SubjectNaturalSciences,
}

// SubjectDisplayName returns the prompt label for a canonical subject key. Unknown keys are returned as given.
func SubjectDisplayName(subject string) string {
	if name, ok := subjectDisplayNames[subject]; ok {
		return name
	}
	return subject
}

// NormalizeSubject maps a localized label to its canonical key. Unmapped values pass through lowercased.
func NormalizeSubject(label string) string {
	s := strings.ToLower(label)
	if key, ok := localizedSubjects[s]; ok {
		return key
	}
	return s
}

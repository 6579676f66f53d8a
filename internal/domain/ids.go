package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	PrefixFlashcard = "fc_"
	PrefixQuestion  = "q_"
	PrefixResearch  = "rs_"
	PrefixExam      = "exam_"
)

// NewID returns prefix followed by 8 random hex characters, e.g. "fc_1a2b3c4d".
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ChatID is stable per (question, user): one running conversation per pair.
func ChatID(questionID, userID string) string {
	return "chat_" + questionID + "_" + userID
}

func fmtMalformed(base error, detail string) error {
	return fmt.Errorf("%w: %s", base, detail)
}

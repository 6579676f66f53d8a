package generation

import (
	"errors"
	"testing"

	"github.com/yungbote/enemia-backend/internal/platform/apierr"
)

type face struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func TestExtractArray_IgnoresSurroundingProse(t *testing.T) {
	text := "Claro! Aqui estão as questões:\n[{\"front\":\"a\",\"back\":\"b\"},{\"front\":\"c\",\"back\":\"d\"}]\nBons estudos."
	got, err := ExtractArray[face](text)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(got) != 2 || got[1].Front != "c" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestExtractArray_Failures(t *testing.T) {
	cases := map[string]string{
		"no brackets":      "sem json nenhum",
		"reversed":         "] antes [",
		"invalid json":     "[{front: 1}]",
		"only open":        "[ ...",
		"object not array": "[1, 2] e [",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractArray[face](text)
			if err == nil {
				t.Fatalf("expected error for %q", text)
			}
			if !errors.Is(err, apierr.ErrGenerationParse) {
				t.Fatalf("expected generation parse kind, got %v", err)
			}
		})
	}
}

func TestSliceObject_BraceSliceWinsOverFence(t *testing.T) {
	text := "prefixo {\"front\":\"x\"} meio ```json\n{\"front\":\"y\"}\n``` fim"
	raw, err := SliceObject(text)
	if err != nil {
		t.Fatalf("SliceObject: %v", err)
	}
	want := "{\"front\":\"x\"} meio ```json\n{\"front\":\"y\"}"
	if raw != want {
		t.Fatalf("got %q want %q", raw, want)
	}
}

func TestSliceObject_NothingFound(t *testing.T) {
	_, err := SliceObject("apenas texto")
	if !errors.Is(err, ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
}

func TestSliceObject_InvertedBracesSliceToEmpty(t *testing.T) {
	raw, err := SliceObject("} texto {")
	if err != nil || raw != "" {
		t.Fatalf("got %q, %v", raw, err)
	}
	if _, err := SliceObject("só abre {"); !errors.Is(err, ErrNoJSON) {
		t.Fatalf("a lone brace has no object, got %v", err)
	}
}

func TestExtractFencedJSON(t *testing.T) {
	text := "Aqui estão:\n```json\n[{\"front\":\"O que é DNA?\",\"back\":\"Ácido desoxirribonucleico.\"}]\n```\nFim."
	got, err := ExtractFencedJSON[[]face](text)
	if err != nil {
		t.Fatalf("ExtractFencedJSON: %v", err)
	}
	if len(got) != 1 || got[0].Back != "Ácido desoxirribonucleico." {
		t.Fatalf("unexpected: %+v", got)
	}

	if _, err := ExtractFencedJSON[[]face]("[{\"front\":\"a\",\"back\":\"b\"}]"); !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("bare array must not be accepted, got %v", err)
	}
	if _, err := ExtractFencedJSON[[]face]("```json\n[{oops}]\n```"); !errors.Is(err, apierr.ErrGenerationParse) {
		t.Fatalf("invalid fenced json must fail, got %v", err)
	}
}

package prompt

import (
	"testing"
	"testing/fstest"
)

func TestLoadYAMLDir(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/analyze.yml": &fstest.MapFile{Data: []byte("system: You explain slides.\nuser: \"Slide {slide_number}: {slide_text}\"\n")},
		"prompts/quiz.yaml":   &fstest.MapFile{Data: []byte("system: You write quizzes.\nuser: \"{slide_text}\"\n")},
		"prompts/ignore.txt":  &fstest.MapFile{Data: []byte("not yaml")},
	}

	prompts, err := LoadYAMLDir(fsys, "prompts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	if prompts["analyze"]["system"] != "You explain slides." {
		t.Fatalf("unexpected system prompt: %q", prompts["analyze"]["system"])
	}
	if _, ok := prompts["quiz"]; !ok {
		t.Fatalf("expected quiz prompt from .yaml file")
	}
}

func TestLoadYAMLMappingRejectsTemplatedSystem(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/bad.yml": &fstest.MapFile{Data: []byte("system: \"You explain {slide_text}\"\nuser: hi\n")},
	}
	if _, err := LoadYAMLMapping(fsys, "prompts/bad.yml"); err == nil {
		t.Fatalf("expected error for templated system prompt")
	}
}

func TestBundlePromptLookup(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/voice.yml": &fstest.MapFile{Data: []byte("system: You narrate slides.\nuser: \"{slide_text}\"\n")},
	}
	bundle, err := LoadBundle(fsys, "prompts", "study")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	voice, err := bundle.Prompt("voice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := Field(voice, "user", "voice.user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "{slide_text}" {
		t.Fatalf("unexpected user prompt: %q", user)
	}

	if _, err := bundle.Prompt("missing"); err == nil {
		t.Fatalf("expected error for unknown prompt")
	}
	if _, err := Field(voice, "missing", "voice.missing"); err == nil {
		t.Fatalf("expected error for missing field")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modguard/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLoadWordList(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "words.txt")

	content := `# This is a comment
hodl
MOON

# Another comment

rugpull

# Invalid lines below
two words
	tabbed	entry

# Valid word after invalid ones
shill
`

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	words, err := loadWordList(testFile)
	if err != nil {
		t.Fatalf("loadWordList failed: %v", err)
	}

	expected := []string{"hodl", "moon", "rugpull", "shill"}

	if len(words) != len(expected) {
		t.Errorf("Expected %d words, got %d", len(expected), len(words))
	}

	for i, want := range expected {
		if i >= len(words) {
			t.Errorf("Missing word at index %d: %s", i, want)
			continue
		}
		if words[i] != want {
			t.Errorf("Word at index %d: expected %s, got %s", i, want, words[i])
		}
	}
}

func TestLoadWordList_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "empty.txt")

	if err := os.WriteFile(testFile, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	words, err := loadWordList(testFile)
	if err != nil {
		t.Fatalf("loadWordList failed: %v", err)
	}

	if len(words) != 0 {
		t.Errorf("Expected 0 words from empty file, got %d", len(words))
	}
}

func TestLoadWordList_OnlyComments(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "comments.txt")

	content := `# Comment 1
# Comment 2

# Comment 3
`

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	words, err := loadWordList(testFile)
	if err != nil {
		t.Fatalf("loadWordList failed: %v", err)
	}

	if len(words) != 0 {
		t.Errorf("Expected 0 words from comments-only file, got %d", len(words))
	}
}

func TestBuildRules(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "words.txt")

	if err := os.WriteFile(testFile, []byte("hodl\nmoon\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	base, err := buildRules(config.Config{ModerationEnabled: true})
	if err != nil {
		t.Fatalf("buildRules without a word file failed: %v", err)
	}

	withFile, err := buildRules(config.Config{ModerationEnabled: true, WordFile: testFile})
	if err != nil {
		t.Fatalf("buildRules failed: %v", err)
	}

	if got, want := withFile.WordCount(), base.WordCount()+2; got != want {
		t.Errorf("Expected %d words after merging the file, got %d", want, got)
	}
}

func TestBuildRules_UnreadableFileReturnsError(t *testing.T) {
	_, err := buildRules(config.Config{
		ModerationEnabled: true,
		WordFile:          "/nonexistent/path/words.txt",
	})
	if err == nil {
		t.Error("Expected error for unreadable word file, got nil")
	}
}

func TestLoadWordList_NonexistentFile(t *testing.T) {
	_, err := loadWordList("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

// TestWordListLogging verifies that the word-list load is logged as
// structured JSON.
func TestWordListLogging(t *testing.T) {
	var buf bytes.Buffer

	originalLogger := log.Logger
	defer func() {
		log.Logger = originalLogger
	}()

	log.Logger = zerolog.New(&buf).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "words.txt")

	content := `# Test words
hodl
moon
rugpull
`

	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	words, err := loadWordList(testFile)
	if err != nil {
		t.Fatalf("loadWordList failed: %v", err)
	}

	// Simulate logging (like we do in buildRules)
	log.Info().
		Int("count", len(words)).
		Str("file", testFile).
		Msg("Loaded word list from file")

	logOutput := buf.String()

	if !strings.Contains(logOutput, "Loaded word list from file") {
		t.Errorf("Log output missing expected message. Got: %s", logOutput)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(logOutput)), &logEntry); err != nil {
		t.Fatalf("Failed to parse log as JSON: %v\nOutput: %s", err, logOutput)
	}

	if logEntry["count"] != float64(3) {
		t.Errorf("Expected count=3, got %v", logEntry["count"])
	}

	if logEntry["file"] != testFile {
		t.Errorf("Expected file=%s, got %v", testFile, logEntry["file"])
	}
}

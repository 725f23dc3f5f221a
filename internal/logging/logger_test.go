package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func readLogs(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, ".cfsubmit", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	var sb strings.Builder
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, ".cfsubmit", "logs", e.Name()))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", e.Name(), err)
		}
		sb.WriteString(e.Name())
		sb.WriteString("\n")
		sb.Write(data)
	}
	return sb.String()
}

// TestAllCategoriesLog tests that all categories create log files when debug mode is on
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySubmit,
		CategoryProblem,
		CategoryDesktop,
		CategoryTactile,
		CategoryNotify,
		CategoryWatch,
	}
	for _, cat := range categories {
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}
	CloseAll()

	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		path := filepath.Join(tempDir, ".cfsubmit", "logs", date+"_"+string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Log file for %s not created: %v", cat, err)
			continue
		}
		content := string(data)
		for _, want := range []string{"Test info message", "Test debug message", "Test warn message", "Test error message"} {
			if !strings.Contains(content, want) {
				t.Errorf("%s log missing %q", cat, want)
			}
		}
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	if err := Initialize(tempDir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	Submit("should not be written")
	Tactile("should not be written")

	if _, err := os.Stat(filepath.Join(tempDir, ".cfsubmit", "logs")); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory in production mode, got err=%v", err)
	}
}

func TestCategoryFilterAndLevel(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	err := Initialize(tempDir, Options{
		DebugMode:  true,
		Level:      "warn",
		Categories: map[string]bool{"watch": false},
		JSONFormat: true,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryWatch) {
		t.Error("watch category should be disabled")
	}
	if !IsCategoryEnabled(CategorySubmit) {
		t.Error("unlisted categories should default to enabled")
	}

	Watch("hidden")
	Submit("info is below warn")
	SubmitWarn("warned %d", 1)
	Get(CategorySubmit).With("job", "abc").Error("with context")
	CloseAll()

	logs := readLogs(t, tempDir)
	if strings.Contains(logs, "hidden") {
		t.Error("disabled category was written")
	}
	if strings.Contains(logs, "info is below warn") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(logs, `"msg":"warned 1"`) {
		t.Errorf("expected JSON warn entry, got:\n%s", logs)
	}
	if !strings.Contains(logs, `"job":"abc"`) {
		t.Errorf("expected structured context field, got:\n%s", logs)
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Error("expected error for empty workspace")
	}
}

func TestConcurrentGet(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	if err := Initialize(tempDir, Options{DebugMode: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Tactile("concurrent %d", n)
		}(i)
	}
	wg.Wait()

	if Get(CategoryTactile) != Get(CategoryTactile) {
		t.Error("expected cached logger per category")
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategorySubmit, "noop")
	if d := timer.StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}

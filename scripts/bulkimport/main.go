// Command bulkimport uploads an accommodation profile CSV to a running API
// instance and prints the per-line import report. Useful for term-start loads
// where the spreadsheet comes from the registrar.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type loginResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type importResponse struct {
	Data struct {
		SuccessCount int                 `json:"success_count"`
		ErrorsByLine map[string][]string `json:"errors_by_line"`
	} `json:"data"`
}

func main() {
	var (
		baseURL    string
		email      string
		password   string
		filePath   string
		courseID   string
		categoryID string
		apply      bool
		timeout    time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "", "admin account email")
	flag.StringVar(&password, "password", "", "admin account password")
	flag.StringVar(&filePath, "file", "", "path to the CSV file")
	flag.StringVar(&courseID, "course", "", "scope imported profiles to this course")
	flag.StringVar(&categoryID, "category", "", "scope imported profiles to this category")
	flag.BoolVar(&apply, "apply", false, "propagate imported profiles immediately")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "HTTP client timeout")
	flag.Parse()

	if email == "" || password == "" || filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: timeout}

	token, err := login(client, baseURL, email, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	result, err := upload(client, baseURL, token, filePath, courseID, categoryID, apply)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	printReport(result)
	if len(result.Data.ErrorsByLine) > 0 {
		os.Exit(1)
	}
}

func login(client *http.Client, baseURL, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(strings.TrimRight(baseURL, "/")+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Data.AccessToken == "" {
		return "", fmt.Errorf("no access token in response")
	}
	return out.Data.AccessToken, nil
}

func upload(client *http.Client, baseURL, token, filePath, courseID, categoryID string, apply bool) (*importResponse, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if courseID != "" {
		_ = writer.WriteField("course_id", courseID)
	}
	if categoryID != "" {
		_ = writer.WriteField("category_id", categoryID)
	}
	if apply {
		_ = writer.WriteField("apply", "true")
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/import", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out importResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func printReport(result *importResponse) {
	fmt.Println("Import Report")
	fmt.Println("=============")
	fmt.Printf("Imported profiles: %d\n", result.Data.SuccessCount)
	if len(result.Data.ErrorsByLine) == 0 {
		fmt.Println("No errors")
		return
	}

	lines := make([]string, 0, len(result.Data.ErrorsByLine))
	for line := range result.Data.ErrorsByLine {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	fmt.Printf("Failed lines: %d\n", len(lines))
	for _, line := range lines {
		for _, msg := range result.Data.ErrorsByLine[line] {
			fmt.Printf("  line %s: %s\n", line, msg)
		}
	}
}

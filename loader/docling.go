package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

const convertPath = "/v1/convert/file"

type doclingResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

func (l *Loader) convertPDFToMD(ctx context.Context, path, name string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.doclingURL+convertPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("docling request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("docling returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var d doclingResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return "", fmt.Errorf("failed to decode docling response: %w", err)
	}
	if d.Document.MdContent == "" && len(d.Errors) > 0 {
		return "", fmt.Errorf("docling conversion failed: %s", d.Errors[0])
	}
	return d.Document.MdContent, nil
}

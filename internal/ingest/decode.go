package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VPRamon/TSI-sub000/internal/dto"
)

// Supported reports whether path has a schedule file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// DecodeFile reads a JSON or YAML schedule document. The format is chosen by
// extension.
func DecodeFile(path string) (dto.StoreScheduleRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return dto.StoreScheduleRequest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(raw, strings.ToLower(filepath.Ext(path)))
}

// Decode parses raw as JSON when ext is ".json" and as YAML otherwise.
func Decode(raw []byte, ext string) (dto.StoreScheduleRequest, error) {
	var req dto.StoreScheduleRequest
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, fmt.Errorf("empty schedule document")
	}
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode json: %w", err)
		}
		return req, nil
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode yaml: %w", err)
	}
	return req, nil
}

package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pixel-knight/pixelknight/config"
)

const defaultModel = "dall-e-3"

// Generator proxies an OpenAI-compatible image generations endpoint and
// stores the results on disk.
type Generator struct {
	cfg        config.ImagesConfig
	dataDir    string
	httpClient *http.Client
	logger     *log.Logger
}

// Generated describes one stored image.
type Generated struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func NewGenerator(cfg config.ImagesConfig, dataDir string) *Generator {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Generator{
		cfg:        cfg,
		dataDir:    filepath.Join(dataDir, "images"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     log.New(log.Writer(), "[IMAGE] ", log.LstdFlags),
	}
}

// IsConfigured reports whether an API key is available for generation.
func (g *Generator) IsConfigured() bool { return strings.TrimSpace(g.cfg.APIKey) != "" }

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate requests one image and writes the decoded PNG under the data
// directory, returning its metadata.
func (g *Generator) Generate(ctx context.Context, prompt, size, quality, style string) (Generated, error) {
	if !g.IsConfigured() {
		return Generated{}, fmt.Errorf("image generation not configured (images.api_key)")
	}
	if strings.TrimSpace(prompt) == "" {
		return Generated{}, fmt.Errorf("prompt required")
	}
	model := g.cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(g.cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	body, err := json.Marshal(generateRequest{
		Model: model, Prompt: prompt, N: 1,
		Size: size, Quality: quality, Style: style,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return Generated{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return Generated{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Generated{}, fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Generated{}, fmt.Errorf("image endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Generated{}, fmt.Errorf("decode image response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return Generated{}, fmt.Errorf("image endpoint returned no data")
	}
	png, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return Generated{}, fmt.Errorf("decode image payload: %w", err)
	}

	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return Generated{}, err
	}
	id := uuid.NewString()
	path := filepath.Join(g.dataDir, id+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return Generated{}, err
	}
	g.logger.Printf("generated image %s (%d bytes)", id, len(png))
	return Generated{ID: id, Prompt: prompt, Path: path, CreatedAt: time.Now()}, nil
}

// List returns the stored images, newest first.
func (g *Generator) List() ([]Generated, error) {
	entries, err := os.ReadDir(g.dataDir)
	if os.IsNotExist(err) {
		return []Generated{}, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Generated
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Generated{
			ID:        strings.TrimSuffix(e.Name(), ".png"),
			Path:      filepath.Join(g.dataDir, e.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ImagePath resolves a stored image ID to its file path.
func (g *Generator) ImagePath(id string) (string, error) {
	if strings.ContainsAny(id, "/\\.") {
		return "", fmt.Errorf("invalid image id")
	}
	path := filepath.Join(g.dataDir, id+".png")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("image %s not found", id)
	}
	return path, nil
}

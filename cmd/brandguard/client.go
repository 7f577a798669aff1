package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/brandguard/internal/models"
	"github.com/hyperjump/brandguard/internal/server"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func searchViaHTTP(ctx context.Context, serverURL, filename string, query *models.SearchQuery) (*models.SearchResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(server.ImageField, filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(query.Image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	params := url.Values{}
	if query.K > 0 {
		params.Set("k", strconv.Itoa(query.K))
	}
	if query.Hints {
		params.Set("hints", "true")
	}
	target := strings.TrimRight(serverURL, "/") + "/api/v1/search"
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var response models.SearchResponse
	if err := doJSON(req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func statusViaHTTP(ctx context.Context, serverURL string) (*models.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var st models.Status
	if err := doJSON(req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// doJSON sends req and decodes a 200 response into out. Error bodies keep their API code.
func doJSON(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusServiceUnavailable {
		return bgerr.New(bgerr.CodeSearchUnavailable, "search unavailable: no reference snapshot on the server")
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Code != "" {
			return bgerr.Errorf(bgerr.Code(apiErr.Code), "server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

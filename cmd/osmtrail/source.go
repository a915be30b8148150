package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/osmtrail/config"
	"github.com/theoremus-urban-solutions/osmtrail/osmsource"
)

// openSource returns the API client, or a file source when urlOrPath names
// an .osm extract on disk or over HTTP.
func openSource(ctx context.Context, urlOrPath string, osmCfg config.OSMConfig) (osmsource.Source, error) {
	if urlOrPath == "" {
		return osmsource.NewClient(osmCfg), nil
	}
	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		return osmsource.NewFileSource(urlOrPath)
	}
	data, err := fetch(ctx, urlOrPath, time.Duration(osmCfg.TimeoutMS)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return osmsource.NewFileSourceFromReader(bytes.NewReader(data))
}

// fetch downloads an extract.
func fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/yegors/handoff-board/internal/classify"
	"github.com/yegors/handoff-board/pkg/logger"
)

// DefaultURL is the public VATSIM v3 data feed
const DefaultURL = "https://data.vatsim.net/v3/vatsim-data.json"

// Source types
const (
	SourceHTTP = "http"
	SourceFile = "file"
)

// Client is responsible for fetching aircraft reports from the feed
type Client struct {
	httpClient *http.Client
	sourceType string
	url        string
	filePath   string
	now        func() time.Time
	logger     *logger.Logger
}

// NewClient creates a new feed client. With sourceType "file" the snapshot at filePath is read on
// every fetch instead of calling the network, which is useful for replaying a captured feed.
func NewClient(sourceType, url, filePath string, timeout time.Duration, loggerObj *logger.Logger) *Client {
	if sourceType == "" {
		sourceType = SourceHTTP
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		sourceType: sourceType,
		url:        url,
		filePath:   filePath,
		now:        time.Now,
		logger:     loggerObj.Named("feed-cli"),
	}
}

// Fetch retrieves the current feed and converts it into samples
func (c *Client) Fetch(ctx context.Context) ([]classify.Sample, error) {
	var data *DataResponse
	var err error

	switch c.sourceType {
	case SourceHTTP:
		data, err = c.fetchHTTP(ctx)
	case SourceFile:
		data, err = c.fetchFile()
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.sourceType)
	}
	if err != nil {
		return nil, err
	}

	samples := data.Samples(c.now())

	if data.GeneralMalformed {
		c.logger.Warn("Feed header could not be decoded, using fetch time")
	}
	for _, m := range data.Malformed {
		c.logger.Warn("Skipping malformed pilot record",
			logger.Int("index", m.Index),
			logger.String("id", m.ID),
			logger.Error(m.Err),
		)
	}

	c.logger.Debug("Successfully fetched feed",
		logger.String("source", c.sourceType),
		logger.Int("pilot_count", len(data.Pilots)),
		logger.Int("malformed_count", len(data.Malformed)),
		logger.Time("update_timestamp", data.General.UpdateTimestamp),
	)

	return samples, nil
}

func (c *Client) fetchHTTP(ctx context.Context) (*DataResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching feed", logger.String("url", c.url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Unexpected status code",
			logger.Int("status_code", resp.StatusCode),
			logger.String("url", c.url),
			logger.String("body", string(body)))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data DataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &data, nil
}

// fetchFile reads a captured feed document, zstd-compressed when the name ends in ".zst"
func (c *Client) fetchFile() (*DataResponse, error) {
	f, err := os.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(c.filePath), ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var data DataResponse
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &data, nil
}

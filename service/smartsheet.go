package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
	"golang.org/x/time/rate"
)

// SmartsheetService reads reference tables from the Smartsheet REST API.
// Requests are throttled to the account's per-minute allowance.
type SmartsheetService struct {
	config     *config.SmartsheetConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SmartsheetSheet is the subset of GET /sheets/{id} the service reads.
type SmartsheetSheet struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Columns []struct {
		ID    int64  `json:"id"`
		Index int    `json:"index"`
		Title string `json:"title"`
	} `json:"columns"`
	Rows []struct {
		ID        int64 `json:"id"`
		RowNumber int   `json:"rowNumber"`
		Cells     []struct {
			ColumnID     int64  `json:"columnId"`
			Value        any    `json:"value,omitempty"`
			DisplayValue string `json:"displayValue,omitempty"`
		} `json:"cells"`
	} `json:"rows"`
}

// SmartsheetError is the error body returned on non-2xx responses.
type SmartsheetError struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	RefID     string `json:"refId"`
}

// SmartsheetCallback is a webhook event callback. Verification requests carry
// Challenge instead of events.
type SmartsheetCallback struct {
	Challenge     string `json:"challenge,omitempty"`
	Nonce         string `json:"nonce,omitempty"`
	WebhookID     int64  `json:"webhookId"`
	Scope         string `json:"scope,omitempty"`
	ScopeObjectID int64  `json:"scopeObjectId,omitempty"`
	Events        []struct {
		ObjectType string `json:"objectType"`
		EventType  string `json:"eventType"`
		ID         int64  `json:"id"`
	} `json:"events,omitempty"`
}

func NewSmartsheetService(cfg *config.SmartsheetConfig) *SmartsheetService {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 300
	}
	return &SmartsheetService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), max(1, rpm/60)),
	}
}

// GetSheet fetches a whole sheet by id.
func (s *SmartsheetService) GetSheet(ctx context.Context, sheetID string) (*SmartsheetSheet, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/sheets/%s", s.config.APIURL, sheetID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr SmartsheetError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("smartsheet API error %d (code %d): %s", resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return nil, fmt.Errorf("smartsheet API error %d", resp.StatusCode)
	}

	var sheet SmartsheetSheet
	if err := json.Unmarshal(body, &sheet); err != nil {
		return nil, fmt.Errorf("failed to parse sheet %s: %w", sheetID, err)
	}
	return &sheet, nil
}

// Fetch implements ReferenceSource; the key is a sheet id.
func (s *SmartsheetService) Fetch(ctx context.Context, key string) (*tabular.Table, error) {
	sheet, err := s.GetSheet(ctx, key)
	if err != nil {
		return nil, err
	}
	return sheet.Table(), nil
}

// Table lays the sheet out by column index. Display values win over raw
// values so currency cells read as the user sees them.
func (sh *SmartsheetSheet) Table() *tabular.Table {
	header := make([]string, len(sh.Columns))
	position := make(map[int64]int, len(sh.Columns))
	for i, c := range sh.Columns {
		header[i] = c.Title
		position[c.ID] = i
	}

	rows := make([][]string, 0, len(sh.Rows))
	for _, r := range sh.Rows {
		line := make([]string, len(header))
		for _, c := range r.Cells {
			i, ok := position[c.ColumnID]
			if !ok {
				continue
			}
			line[i] = cellText(c.DisplayValue, c.Value)
		}
		rows = append(rows, line)
	}
	return tabular.New(header, rows)
}

func cellText(display string, value any) string {
	if display != "" {
		return display
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// VerifyCallback checks the Smartsheet-Hmac-SHA256 signature of a callback
// body. Without a configured secret every callback is accepted.
func (s *SmartsheetService) VerifyCallback(signature string, body []byte) bool {
	if s.config.WebhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

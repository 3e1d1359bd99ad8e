package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Board column ids.
const (
	columnNotes          = "text4"
	columnLocation       = "location"
	columnDate           = "date4"
	columnPreviousSerial = "text7"
	columnLampType       = "label3"
	columnSwitchType     = "status_1"
	columnReport         = "long_text"
	columnFiles          = "files"
)

const (
	createItemMutation = `mutation ($boardId: ID!, $groupId: String!, $itemName: String!, $columnValues: JSON!) {
  create_item(board_id: $boardId, group_id: $groupId, item_name: $itemName, column_values: $columnValues, create_labels_if_missing: true) { id }
}`

	updateItemMutation = `mutation ($boardId: ID!, $itemId: ID!, $columnValues: JSON!) {
  change_multiple_column_values(board_id: $boardId, item_id: $itemId, column_values: $columnValues, create_labels_if_missing: true) { id }
}`

	// add_file_to_column only accepts the file as a multipart variable, so the
	// item id is validated as numeric before being placed in the query.
	addFileMutation = `mutation ($file: File!) { add_file_to_column(file: $file, item_id: %s, column_id: "%s") { id } }`

	maxErrorBody = 1 << 10
)

// MondayConfig configures MondayClient.
type MondayConfig struct {
	APIURL  string
	FileURL string
	APIKey  string
	BoardID int64
	GroupID string
	Timeout time.Duration

	HTTPClient *http.Client
}

// MondayClient implements Board over the monday.com API.
type MondayClient struct {
	cfg  MondayConfig
	http *http.Client
}

var _ Board = (*MondayClient)(nil)

// NewMondayClient creates a board client.
func NewMondayClient(cfg MondayConfig) *MondayClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.FileURL == "" {
		cfg.FileURL = strings.TrimRight(cfg.APIURL, "/") + "/file"
	}
	return &MondayClient{cfg: cfg, http: hc}
}

// CreateItem adds a new row named after the serial and returns its id.
func (c *MondayClient) CreateItem(ctx context.Context, item Item) (string, error) {
	cols, err := columnValues(item)
	if err != nil {
		return "", err
	}

	var out struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	err = c.query(ctx, "create_item", createItemMutation, map[string]any{
		"boardId":      strconv.FormatInt(c.cfg.BoardID, 10),
		"groupId":      c.cfg.GroupID,
		"itemName":     item.Serial,
		"columnValues": cols,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.CreateItem.ID == "" {
		return "", fmt.Errorf("%w: create_item returned no id", ErrGraphQL)
	}
	return out.CreateItem.ID, nil
}

// UpdateItem rewrites the columns of an existing row.
func (c *MondayClient) UpdateItem(ctx context.Context, itemID string, item Item) error {
	if _, err := strconv.ParseInt(itemID, 10, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidItemID, itemID)
	}
	cols, err := columnValues(item)
	if err != nil {
		return err
	}
	return c.query(ctx, "change_multiple_column_values", updateItemMutation, map[string]any{
		"boardId":      strconv.FormatInt(c.cfg.BoardID, 10),
		"itemId":       itemID,
		"columnValues": cols,
	}, nil)
}

// AttachFile uploads data into the row's files column.
func (c *MondayClient) AttachFile(ctx context.Context, itemID, filename string, data []byte) error {
	if _, err := strconv.ParseInt(itemID, 10, 64); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidItemID, itemID)
	}
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if filename == "" {
		filename = "picture.jpg"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("query", fmt.Sprintf(addFileMutation, itemID, columnFiles)); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	part, err := mw.CreateFormFile("variables[file]", filename)
	if err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FileURL, &body)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, "add_file_to_column", nil)
}

// HealthCheck asks the API who the key belongs to.
func (c *MondayClient) HealthCheck(ctx context.Context) error {
	var out struct {
		Me struct {
			ID string `json:"id"`
		} `json:"me"`
	}
	if err := c.query(ctx, "me", "query { me { id } }", nil, &out); err != nil {
		return fmt.Errorf("tracking health check failed: %w", err)
	}
	return nil
}

func (c *MondayClient) query(ctx context.Context, op, query string, vars map[string]any, out any) error {
	buf, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, op, out)
}

// response covers both the GraphQL error list and the API's own error fields.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
}

func (c *MondayClient) send(req *http.Request, op string, out any) error {
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}

	var r response
	decodeErr := json.Unmarshal(raw, &r)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && (len(r.Errors) > 0 || r.ErrorMessage != "") {
			return graphQLError(op, r)
		}
		return &StatusError{Operation: op, StatusCode: resp.StatusCode, Body: truncate(raw)}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decoding response: %w", op, decodeErr)
	}
	if len(r.Errors) > 0 || r.ErrorMessage != "" {
		return graphQLError(op, r)
	}
	if out != nil && len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, out); err != nil {
			return fmt.Errorf("%s: decoding data: %w", op, err)
		}
	}
	return nil
}

func graphQLError(op string, r response) error {
	msgs := make([]string, 0, len(r.Errors)+1)
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	if r.ErrorMessage != "" {
		msg := r.ErrorMessage
		if r.ErrorCode != "" {
			msg = r.ErrorCode + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s: %s", ErrGraphQL, op, strings.Join(msgs, "; "))
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}

// columnValues renders an Item into the board's column JSON.
func columnValues(item Item) (string, error) {
	lamp := item.LampType
	if lamp == "" {
		lamp = UnknownLampType
	}

	cols := map[string]any{
		columnNotes: item.Notes,
		columnLocation: map[string]string{
			"lat":     strconv.FormatFloat(item.Latitude, 'f', -1, 64),
			"lng":     strconv.FormatFloat(item.Longitude, 'f', -1, 64),
			"address": item.Serial,
		},
		columnPreviousSerial: item.PreviousSerial,
		columnLampType:       map[string]string{"label": lamp},
		columnReport:         map[string]string{"text": item.Report},
	}
	if !item.Date.IsZero() {
		cols[columnDate] = map[string]string{"date": item.Date.Format("2006-01-02")}
	}
	if item.SwitchType != "" {
		cols[columnSwitchType] = map[string]string{"label": item.SwitchType}
	}

	b, err := json.Marshal(cols)
	if err != nil {
		return "", fmt.Errorf("encoding column values: %w", err)
	}
	return string(b), nil
}
